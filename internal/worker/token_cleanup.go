package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/repository"
)

// ExpiredTokenDeleter is the slice of the token store the cleanup job needs
type ExpiredTokenDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

var _ ExpiredTokenDeleter = (repository.RefreshTokenRepository)(nil)

// TokenCleanupJob deletes refresh token records that expired more than
// retention ago. Unexpired rows are never touched, so replay detection keeps
// working for every token that could still be presented.
type TokenCleanupJob struct {
	store     ExpiredTokenDeleter
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewTokenCleanupJob creates a cleanup job. A negative retention is treated as zero.
func NewTokenCleanupJob(store ExpiredTokenDeleter, interval, retention time.Duration, logger *slog.Logger) *TokenCleanupJob {
	if retention < 0 {
		retention = 0
	}
	return &TokenCleanupJob{
		store:     store,
		interval:  interval,
		retention: retention,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the job's time source
func (j *TokenCleanupJob) WithClock(now func() time.Time) *TokenCleanupJob {
	j.now = now
	return j
}

// Start schedules the job on pool
func (j *TokenCleanupJob) Start(pool *Pool) {
	pool.Every("token_cleanup", j.interval, func(ctx context.Context) {
		_, _ = j.RunOnce(ctx)
	})
}

// RunOnce performs a single cleanup pass and returns the number of deleted rows
func (j *TokenCleanupJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention)

	deleted, err := j.store.DeleteExpired(ctx, cutoff)
	if err != nil {
		j.logger.Error("❌ [Worker] Token cleanup failed", "error", err)
		return 0, err
	}

	if deleted > 0 {
		j.logger.Info("🧹 [Worker] Expired refresh tokens deleted",
			"deleted", deleted,
			"cutoff", cutoff,
		)
	}
	return deleted, nil
}
