package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/models"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/repository"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/token"
)

type familyRevoker interface {
	RevokeFamily(ctx context.Context, tokenFamily string, userID uint) error
}

// TokenValidator decides whether a presented refresh token may be used and
// detects replay of tokens that were already rotated.
type TokenValidator struct {
	store   repository.RefreshTokenRepository
	revoker familyRevoker
	logger  *slog.Logger
	now     Clock
}

// NewTokenValidator creates a new token validator
func NewTokenValidator(
	store repository.RefreshTokenRepository,
	revoker familyRevoker,
	logger *slog.Logger,
	opts ...Option,
) *TokenValidator {
	o := buildOptions(opts)
	return &TokenValidator{
		store:   store,
		revoker: revoker,
		logger:  logger,
		now:     o.now,
	}
}

// Validate looks up jti and checks, in order: expiry, prior use, revocation,
// then the secret. A used token revokes its whole family before
// ErrReplayDetected is returned.
func (v *TokenValidator) Validate(ctx context.Context, jti, presentedSecret string) (*models.RefreshToken, error) {
	record, err := v.store.FindByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	if models.IsExpired(*record, v.now()) {
		return nil, ErrTokenExpired
	}

	if record.IsUsed {
		v.logger.Error("🚨 [TokenValidator] Refresh token replay detected, revoking family",
			"user_id", record.UserID,
			"token_family", record.TokenFamily,
			"jti", record.JTI,
			"ip_address", record.IPAddress,
		)
		if err := v.revoker.RevokeFamily(ctx, record.TokenFamily, record.UserID); err != nil {
			return nil, errors.Join(ErrReplayDetected, fmt.Errorf("revoke token family: %w", err))
		}
		return nil, ErrReplayDetected
	}

	if record.IsRevoked {
		return nil, ErrTokenRevoked
	}

	if !token.CompareSecret(presentedSecret, record.SecretHash) {
		v.logger.Warn("⚠️ [TokenValidator] Secret mismatch", "jti", record.JTI)
		return nil, ErrInvalidToken
	}

	return record, nil
}
