package database

import (
	"context"
)

// RevokedFamilyStore records recently revoked token families so access tokens
// minted for them can be refused until they expire on their own
type RevokedFamilyStore interface {
	MarkFamiliesRevoked(ctx context.Context, families ...string) error
	IsFamilyRevoked(ctx context.Context, family string) (bool, error)
	Close() error
}
