package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/config"
)

// RateLimiter handles fixed-window rate limiting of auth routes
type RateLimiter interface {
	// Allow counts one request for clientKey under policy
	// Returns: allowed bool, remaining int64, retryAfter time.Duration, error
	Allow(ctx context.Context, policy config.RateLimitPolicy, clientKey string) (bool, int64, time.Duration, error)

	// Close releases the limiter's resources
	Close() error
}

type redisRateLimiter struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimiter creates a new Redis-based rate limiter on an established client
func NewRateLimiter(client *redis.Client, logger *slog.Logger) RateLimiter {
	logger.Info("✅ [RateLimiter] Using Redis rate limiter")
	return &redisRateLimiter{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// windowKey generates the Redis key for one client's counter in the current window
// Format: rate:{route}:{client}:{windowIndex}
func windowKey(route config.RouteName, clientKey string, windowIndex int64) string {
	return fmt.Sprintf("rate:%s:%s:%d", route, clientKey, windowIndex)
}

func (r *redisRateLimiter) Allow(ctx context.Context, policy config.RateLimitPolicy, clientKey string) (bool, int64, time.Duration, error) {
	if policy.Unlimited() {
		return true, -1, 0, nil
	}

	now := r.now()
	windowIndex := now.UnixNano() / int64(policy.Window)
	windowEnd := time.Unix(0, (windowIndex+1)*int64(policy.Window))
	key := windowKey(policy.Route, clientKey, windowIndex)

	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, policy.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("❌ [RateLimiter] Failed to increment counter", "error", err, "route", policy.Route)
		// On error, allow the request but report it
		return true, policy.Limit, 0, err
	}

	count := incr.Val()
	remaining := policy.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	if count > policy.Limit {
		return false, 0, windowEnd.Sub(now), nil
	}
	return true, remaining, 0, nil
}

func (r *redisRateLimiter) Close() error {
	return r.client.Close()
}

// NoOpRateLimiter is a rate limiter that always allows requests
// Used when Redis is not available
type NoOpRateLimiter struct {
	logger *slog.Logger
}

// NewNoOpRateLimiter creates a no-op rate limiter
func NewNoOpRateLimiter(logger *slog.Logger) RateLimiter {
	logger.Warn("⚠️ [RateLimiter] Using no-op rate limiter - rate limiting is disabled")
	return &NoOpRateLimiter{logger: logger}
}

func (r *NoOpRateLimiter) Allow(ctx context.Context, policy config.RateLimitPolicy, clientKey string) (bool, int64, time.Duration, error) {
	return true, -1, 0, nil
}

func (r *NoOpRateLimiter) Close() error {
	return nil
}

// RateLimit returns middleware enforcing the route's policy per client IP
func RateLimit(limiter RateLimiter, cfg *config.Config, route config.RouteName, logger *slog.Logger) gin.HandlerFunc {
	policy := cfg.PolicyFor(route)

	return func(c *gin.Context) {
		allowed, remaining, retryAfter, err := limiter.Allow(c.Request.Context(), policy, c.ClientIP())
		if err != nil {
			logger.Warn("⚠️ [Middleware] Rate limiter unavailable, allowing request", "route", route, "error", err)
		}

		if remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		}

		if !allowed {
			seconds := int64(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.FormatInt(seconds, 10))
			logger.Warn("⚠️ [Middleware] Rate limit exceeded", "route", route, "client_ip", c.ClientIP())
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests", "code": "rate_limited"})
			c.Abort()
			return
		}

		c.Next()
	}
}
