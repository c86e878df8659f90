package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/repository"
)

// RevocationCache remembers revoked families so access tokens minted for them
// can be rejected before they expire on their own.
type RevocationCache interface {
	MarkFamiliesRevoked(ctx context.Context, families ...string) error
}

// FamilyRevoker revokes every record of a token family, or of a user
type FamilyRevoker struct {
	store  repository.RefreshTokenRepository
	cache  RevocationCache
	logger *slog.Logger
}

// NewFamilyRevoker creates a new family revoker. cache may be nil.
func NewFamilyRevoker(store repository.RefreshTokenRepository, cache RevocationCache, logger *slog.Logger) *FamilyRevoker {
	return &FamilyRevoker{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// RevokeFamily sets is_revoked on every unrevoked record of the family owned by userID.
// Calling it again has no further effect.
func (f *FamilyRevoker) RevokeFamily(ctx context.Context, tokenFamily string, userID uint) error {
	count, err := f.store.RevokeFamily(ctx, tokenFamily, userID)
	if err != nil {
		return fmt.Errorf("revoke token family: %w", err)
	}

	f.logger.Info("🔒 [FamilyRevoker] Token family revoked",
		"user_id", userID,
		"token_family", tokenFamily,
		"records", count,
	)

	f.remember(ctx, tokenFamily)
	return nil
}

// RevokeAllForUser sets is_revoked on every unrevoked record owned by userID
func (f *FamilyRevoker) RevokeAllForUser(ctx context.Context, userID uint) error {
	count, err := f.store.RevokeAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}

	f.logger.Info("🔒 [FamilyRevoker] All user tokens revoked",
		"user_id", userID,
		"records", count,
	)

	if f.cache != nil {
		families, err := f.store.ListFamilies(ctx, userID)
		if err != nil {
			f.logger.Warn("⚠️ [FamilyRevoker] Failed to list families for cache", "user_id", userID, "error", err)
			return nil
		}
		f.remember(ctx, families...)
	}
	return nil
}

// remember is best-effort: the store is authoritative, the cache only shortens
// the lifetime of already-issued access tokens.
func (f *FamilyRevoker) remember(ctx context.Context, families ...string) {
	if f.cache == nil || len(families) == 0 {
		return
	}
	if err := f.cache.MarkFamiliesRevoked(ctx, families...); err != nil {
		f.logger.Warn("⚠️ [FamilyRevoker] Failed to cache revoked families",
			"families", len(families),
			"error", err,
		)
	}
}
