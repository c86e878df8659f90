package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsExpired(t *testing.T) {
	expiresAt := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	rec := RefreshToken{ExpiresAt: expiresAt}

	assert.False(t, IsExpired(rec, expiresAt.Add(-time.Nanosecond)))
	assert.True(t, IsExpired(rec, expiresAt))
	assert.True(t, IsExpired(rec, expiresAt.Add(time.Second)))
}

func TestIsExpired_Monotonic(t *testing.T) {
	expiresAt := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	rec := RefreshToken{ExpiresAt: expiresAt}

	expired := false
	for offset := -5 * time.Second; offset <= 5*time.Second; offset += 500 * time.Millisecond {
		now := IsExpired(rec, expiresAt.Add(offset))
		if expired {
			assert.True(t, now, "record became unexpired at offset %s", offset)
		}
		expired = now
	}
	assert.True(t, expired)
}

func TestIsActive(t *testing.T) {
	now := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	live := RefreshToken{ExpiresAt: now.Add(time.Hour)}

	tests := []struct {
		name string
		rec  RefreshToken
		want bool
	}{
		{"live", live, true},
		{"used", RefreshToken{ExpiresAt: live.ExpiresAt, IsUsed: true}, false},
		{"revoked", RefreshToken{ExpiresAt: live.ExpiresAt, IsRevoked: true}, false},
		{"expired", RefreshToken{ExpiresAt: now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsActive(tt.rec, now))
		})
	}
}
