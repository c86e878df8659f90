package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/models"
)

// maxRevokePasses bounds the repeat-until-quiet loop in revokeWhere
const maxRevokePasses = 3

// RefreshTokenRepository is the token record store. Every mutation is a
// conditional or idempotent statement so concurrent callers never need locks.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByJTI(ctx context.Context, jti string) (*models.RefreshToken, error)
	// MarkUsed consumes an unused, unrevoked record. It returns ErrTokenAlreadyUsed
	// when another caller consumed it first.
	MarkUsed(ctx context.Context, jti, replacedByJTI string, usedAt time.Time) error
	RevokeFamily(ctx context.Context, tokenFamily string, userID uint) (int64, error)
	RevokeAllForUser(ctx context.Context, userID uint) (int64, error)
	ListActiveByUser(ctx context.Context, userID uint, now time.Time) ([]models.RefreshToken, error)
	ListFamilies(ctx context.Context, userID uint) ([]string, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	// Transaction runs fn against a repository bound to a single database transaction
	Transaction(ctx context.Context, fn func(repo RefreshTokenRepository) error) error
}

type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new refresh token repository instance
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *refreshTokenRepository) FindByJTI(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	err := r.db.WithContext(ctx).Where("jti = ?", jti).First(&refreshToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	return &refreshToken, nil
}

func (r *refreshTokenRepository) MarkUsed(ctx context.Context, jti, replacedByJTI string, usedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("jti = ? AND is_used = ? AND is_revoked = ?", jti, false, false).
		Updates(map[string]interface{}{
			"is_used":         true,
			"last_used_at":    usedAt,
			"replaced_by_jti": replacedByJTI,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	// Lost the compare-and-swap: report why
	current, err := r.FindByJTI(ctx, jti)
	if err != nil {
		return err
	}
	if current.IsRevoked && !current.IsUsed {
		return ErrTokenRevoked
	}
	return ErrTokenAlreadyUsed
}

func (r *refreshTokenRepository) RevokeFamily(ctx context.Context, tokenFamily string, userID uint) (int64, error) {
	return r.revokeWhere(ctx, "token_family = ? AND user_id = ?", tokenFamily, userID)
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uint) (int64, error) {
	return r.revokeWhere(ctx, "user_id = ?", userID)
}

// revokeWhere repeats the bulk update until a pass touches nothing, so a
// successor committed by a rotation racing the first pass is caught by the next.
func (r *refreshTokenRepository) revokeWhere(ctx context.Context, filter string, args ...interface{}) (int64, error) {
	var total int64
	for pass := 0; pass < maxRevokePasses; pass++ {
		result := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
			Where(filter, args...).
			Where("is_revoked = ?", false).
			Update("is_revoked", true)
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
		if result.RowsAffected == 0 {
			break
		}
	}
	return total, nil
}

func (r *refreshTokenRepository) ListActiveByUser(ctx context.Context, userID uint, now time.Time) ([]models.RefreshToken, error) {
	var tokens []models.RefreshToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_revoked = ? AND is_used = ? AND expires_at > ?", userID, false, false, now).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

func (r *refreshTokenRepository) ListFamilies(ctx context.Context, userID uint) ([]string, error) {
	var families []string
	err := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Distinct("token_family").
		Pluck("token_family", &families).Error
	return families, err
}

func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}

func (r *refreshTokenRepository) Transaction(ctx context.Context, fn func(repo RefreshTokenRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&refreshTokenRepository{db: tx})
	})
}

// Repository errors
var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrTokenAlreadyUsed = errors.New("token already used")
	ErrTokenRevoked     = errors.New("token revoked")
)
