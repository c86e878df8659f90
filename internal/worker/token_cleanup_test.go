package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/models"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/repository"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/testutil"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/worker"
)

var now = time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, repo repository.RefreshTokenRepository, jti string, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &models.RefreshToken{
		JTI:         jti,
		TokenFamily: "family-" + jti,
		SecretHash:  "hash-" + jti,
		UserID:      1,
		ExpiresAt:   expiresAt,
		CreatedAt:   expiresAt.Add(-24 * time.Hour),
	}))
}

func TestTokenCleanupJob_RunOnce(t *testing.T) {
	repo := repository.NewRefreshTokenRepository(testutil.NewTestDB(t))
	ctx := context.Background()

	seed(t, repo, "long-gone", now.Add(-96*time.Hour))
	seed(t, repo, "recently-expired", now.Add(-time.Hour))
	seed(t, repo, "live", now.Add(time.Hour))

	job := worker.NewTokenCleanupJob(repo, time.Hour, 72*time.Hour, testutil.TestLogger()).
		WithClock(func() time.Time { return now })

	deleted, err := job.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByJTI(ctx, "long-gone")
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)

	// Expired within retention stays so a late replay is still recognised
	_, err = repo.FindByJTI(ctx, "recently-expired")
	assert.NoError(t, err)
	_, err = repo.FindByJTI(ctx, "live")
	assert.NoError(t, err)
}

func TestTokenCleanupJob_NegativeRetention(t *testing.T) {
	store := new(testutil.MockRefreshTokenRepository)
	store.On("DeleteExpired", mock.Anything, now).Return(int64(0), nil)

	job := worker.NewTokenCleanupJob(store, time.Hour, -time.Hour, testutil.TestLogger()).
		WithClock(func() time.Time { return now })

	_, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestTokenCleanupJob_StoreError(t *testing.T) {
	store := new(testutil.MockRefreshTokenRepository)
	store.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	job := worker.NewTokenCleanupJob(store, time.Hour, 0, testutil.TestLogger())

	deleted, err := job.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Zero(t, deleted)
}

func TestTokenCleanupJob_Start(t *testing.T) {
	store := new(testutil.MockRefreshTokenRepository)
	called := make(chan struct{}, 1)
	store.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(2), nil).Run(func(mock.Arguments) {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	pool := worker.NewPool(testutil.TestLogger())
	worker.NewTokenCleanupJob(store, time.Hour, time.Hour, testutil.TestLogger()).Start(pool)

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup did not run on start")
	}

	assert.True(t, pool.Shutdown(time.Second))
}
