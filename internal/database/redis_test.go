package database

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/config"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/logger"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := &config.Config{AccessTokenExpiration: 900, LogLevel: slog.LevelError}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rc := NewRedisClientForTesting(client, cfg, logger.NewWithWriter(cfg, io.Discard))
	t.Cleanup(func() { _ = rc.Close() })

	return mr, rc
}

func TestRedisClient_MarkFamiliesRevoked(t *testing.T) {
	mr, rc := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.MarkFamiliesRevoked(ctx, "family-a", "family-b"))

	assert.True(t, mr.Exists("revoked:family:family-a"))
	assert.True(t, mr.Exists("revoked:family:family-b"))
	assert.Equal(t, 900*time.Second, mr.TTL("revoked:family:family-a"))

	revoked, err := rc.IsFamilyRevoked(ctx, "family-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = rc.IsFamilyRevoked(ctx, "family-c")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisClient_MarkFamiliesRevoked_Empty(t *testing.T) {
	mr, rc := setupTestRedis(t)

	require.NoError(t, rc.MarkFamiliesRevoked(context.Background()))
	assert.Empty(t, mr.Keys())
}

func TestRedisClient_RevocationExpiresWithAccessTokens(t *testing.T) {
	mr, rc := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.MarkFamiliesRevoked(ctx, "family-a"))

	mr.FastForward(899 * time.Second)
	revoked, err := rc.IsFamilyRevoked(ctx, "family-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(time.Second)
	revoked, err = rc.IsFamilyRevoked(ctx, "family-a")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisClient_Unavailable(t *testing.T) {
	mr, rc := setupTestRedis(t)
	mr.Close()

	ctx := context.Background()
	assert.Error(t, rc.MarkFamiliesRevoked(ctx, "family-a"))

	_, err := rc.IsFamilyRevoked(ctx, "family-a")
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{
		PostgreSQLHost:     "db",
		PostgreSQLPort:     5433,
		PostgreSQLUser:     "keeper",
		PostgreSQLPassword: "pw",
		PostgreSQLDatabase: "sessions",
	}

	assert.Equal(t, "host=db user=keeper password=pw dbname=sessions port=5433 sslmode=disable TimeZone=UTC", postgresDSN(cfg))
}
