package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/models"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/repository"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/token"
)

// RotateRequest retires OldJTI and records its successor
type RotateRequest struct {
	OldJTI                string
	NewSignedRefreshToken string
	NewJTI                string
	TTLSeconds            int64
	IPAddress             string
	UserAgent             string
}

// TokenRotator retires a validated token and records its successor in the same family
type TokenRotator struct {
	store  repository.RefreshTokenRepository
	logger *slog.Logger
	now    Clock
}

// NewTokenRotator creates a new token rotator
func NewTokenRotator(store repository.RefreshTokenRepository, logger *slog.Logger, opts ...Option) *TokenRotator {
	o := buildOptions(opts)
	return &TokenRotator{
		store:  store,
		logger: logger,
		now:    o.now,
	}
}

// Rotate marks the old record used with a compare-and-swap and inserts the
// successor, both in one transaction. Losing the swap yields ErrConcurrentRotation.
func (r *TokenRotator) Rotate(ctx context.Context, req RotateRequest) (*models.RefreshToken, error) {
	if req.NewJTI == "" || req.NewSignedRefreshToken == "" || req.TTLSeconds <= 0 {
		return nil, fmt.Errorf("%w: incomplete rotation request", ErrInvalidToken)
	}

	now := r.now()
	var next *models.RefreshToken

	err := r.store.Transaction(ctx, func(tx repository.RefreshTokenRepository) error {
		old, err := tx.FindByJTI(ctx, req.OldJTI)
		if err != nil {
			return err
		}

		if err := tx.MarkUsed(ctx, old.JTI, req.NewJTI, now); err != nil {
			return err
		}

		next = &models.RefreshToken{
			JTI:         req.NewJTI,
			TokenFamily: old.TokenFamily,
			SecretHash:  token.HashSecret(req.NewSignedRefreshToken),
			UserID:      old.UserID,
			ExpiresAt:   now.Add(time.Duration(req.TTLSeconds) * time.Second),
			IPAddress:   req.IPAddress,
			UserAgent:   req.UserAgent,
			CreatedAt:   now,
		}
		return tx.Create(ctx, next)
	})

	switch {
	case err == nil:
	case errors.Is(err, repository.ErrTokenNotFound):
		return nil, ErrInvalidToken
	case errors.Is(err, repository.ErrTokenAlreadyUsed):
		r.logger.Warn("⚠️ [TokenRotator] Lost rotation race", "jti", req.OldJTI)
		return nil, ErrConcurrentRotation
	case errors.Is(err, repository.ErrTokenRevoked):
		return nil, ErrTokenRevoked
	default:
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	r.logger.Debug("🔄 [TokenRotator] Token rotated",
		"user_id", next.UserID,
		"token_family", next.TokenFamily,
	)

	return next, nil
}
