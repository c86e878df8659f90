package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the persisted record of one issued refresh token.
// Records are plain values; lifecycle rules live in the service layer.
type RefreshToken struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	JTI           string     `gorm:"column:jti;uniqueIndex;not null" json:"jti"`
	TokenFamily   string     `gorm:"not null;index:idx_refresh_tokens_family_revoked,priority:1" json:"token_family"`
	SecretHash    string     `gorm:"not null" json:"-"`
	UserID        uint       `gorm:"not null;index:idx_refresh_tokens_user_revoked,priority:1" json:"user_id"`
	IsUsed        bool       `gorm:"not null;default:false" json:"is_used"`
	IsRevoked     bool       `gorm:"not null;default:false;index:idx_refresh_tokens_user_revoked,priority:2;index:idx_refresh_tokens_family_revoked,priority:2" json:"is_revoked"`
	ExpiresAt     time.Time  `gorm:"not null;index" json:"expires_at"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	ReplacedByJTI *string    `gorm:"column:replaced_by_jti" json:"replaced_by_jti,omitempty"`
	IPAddress     string     `json:"ip_address"`
	UserAgent     string     `json:"user_agent"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TableName overrides the table name
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// IsExpired reports whether the record is at or past its expiry at now
func IsExpired(rec RefreshToken, now time.Time) bool {
	return !now.Before(rec.ExpiresAt)
}

// IsActive reports whether the record is unused, unrevoked and unexpired at now
func IsActive(rec RefreshToken, now time.Time) bool {
	return !rec.IsUsed && !rec.IsRevoked && !IsExpired(rec, now)
}
