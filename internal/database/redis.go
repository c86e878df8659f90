package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/config"
)

// RedisClient wraps the redis client with helper methods for the revoked-family cache
type RedisClient struct {
	client *redis.Client
	logger *slog.Logger
	cfg    *config.Config
}

var _ RevokedFamilyStore = (*RedisClient)(nil)

// NewRedisClient creates a new Redis client instance
func NewRedisClient(cfg *config.Config, logger *slog.Logger) (*RedisClient, error) {
	logger.Info("🔌 [Redis] Connecting to Redis...",
		"host", cfg.RedisHost,
		"port", cfg.RedisPort,
		"db", cfg.RedisDB,
	)

	client := NewRedisConnection(cfg)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("✅ [Redis] Redis connection established")

	return &RedisClient{
		client: client,
		logger: logger,
		cfg:    cfg,
	}, nil
}

// NewRedisConnection builds an unverified go-redis client from the config
func NewRedisConnection(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       int(cfg.RedisDB),
	})
}

// NewRedisClientForTesting creates a Redis client with a provided redis.Client (for testing)
func NewRedisClientForTesting(client *redis.Client, cfg *config.Config, logger *slog.Logger) *RedisClient {
	return &RedisClient{
		client: client,
		logger: logger,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// familyKey generates a Redis key for a revoked token family
func familyKey(family string) string {
	return fmt.Sprintf("revoked:family:%s", family)
}

// MarkFamiliesRevoked flags each family for as long as an access token minted
// for it could still be valid
func (r *RedisClient) MarkFamiliesRevoked(ctx context.Context, families ...string) error {
	if len(families) == 0 {
		return nil
	}

	ttl := r.cfg.AccessTokenTTL()

	pipe := r.client.Pipeline()
	for _, family := range families {
		pipe.Set(ctx, familyKey(family), "1", ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("❌ [Redis] Failed to mark families revoked",
			"families", len(families),
			"error", err,
		)
		return err
	}

	r.logger.Debug("💾 [Redis] Marked families revoked",
		"families", len(families),
		"ttl", ttl,
	)

	return nil
}

// IsFamilyRevoked reports whether the family was revoked within the access token TTL
func (r *RedisClient) IsFamilyRevoked(ctx context.Context, family string) (bool, error) {
	n, err := r.client.Exists(ctx, familyKey(family)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetClient returns the underlying Redis client (for advanced use cases)
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}
