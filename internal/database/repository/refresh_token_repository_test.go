package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/models"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/database/repository"
	"github.com/EgehanKilicarslan/sessionkeeper/internal/testutil"
)

var baseTime = time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)

func newRecord(jti, family string, userID uint) *models.RefreshToken {
	return &models.RefreshToken{
		JTI:         jti,
		TokenFamily: family,
		SecretHash:  "hash-" + jti,
		UserID:      userID,
		ExpiresAt:   baseTime.Add(24 * time.Hour),
		CreatedAt:   baseTime,
	}
}

func setupTokenRepo(t *testing.T) repository.RefreshTokenRepository {
	t.Helper()
	return repository.NewRefreshTokenRepository(testutil.NewTestDB(t))
}

func TestRefreshTokenRepository_CreateAndFind(t *testing.T) {
	repo := setupTokenRepo(t)
	ctx := context.Background()

	rec := newRecord("jti-1", "fam-1", 7)
	require.NoError(t, repo.Create(ctx, rec))
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", rec.ID.String())

	found, err := repo.FindByJTI(ctx, "jti-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, found.ID)
	assert.Equal(t, "fam-1", found.TokenFamily)
	assert.Equal(t, uint(7), found.UserID)
	assert.False(t, found.IsUsed)
	assert.False(t, found.IsRevoked)
	assert.Nil(t, found.ReplacedByJTI)
}

func TestRefreshTokenRepository_FindByJTI_NotFound(t *testing.T) {
	repo := setupTokenRepo(t)

	_, err := repo.FindByJTI(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)
}

func TestRefreshTokenRepository_DuplicateJTI(t *testing.T) {
	repo := setupTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord("jti-1", "fam-1", 1)))
	assert.Error(t, repo.Create(ctx, newRecord("jti-1", "fam-2", 1)))
}

func TestRefreshTokenRepository_MarkUsed(t *testing.T) {
	repo := setupTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord("jti-1", "fam-1", 1)))

	usedAt := baseTime.Add(time.Minute)
	require.NoError(t, repo.MarkUsed(ctx, "jti-1", "jti-2", usedAt))

	found, err := repo.FindByJTI(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, found.IsUsed)
	require.NotNil(t, found.ReplacedByJTI)
	assert.Equal(t, "jti-2", *found.ReplacedByJTI)
	require.NotNil(t, found.LastUsedAt)
	assert.True(t, usedAt.Equal(*found.LastUsedAt))

	// Second consumer loses the swap
	err = repo.MarkUsed(ctx, "jti-1", "jti-3", usedAt)
	assert.ErrorIs(t, err, repository.ErrTokenAlreadyUsed)

	found, err = repo.FindByJTI(ctx, "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "jti-2", *found.ReplacedByJTI)
}

func TestRefreshTokenRepository_MarkUsed_Revoked(t *testing.T) {
	repo := setupTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord("jti-1", "fam-1", 1)))
	_, err := repo.RevokeFamily(ctx, "fam-1", 1)
	require.NoError(t, err)

	err = repo.MarkUsed(ctx, "jti-1", "jti-2", baseTime)
	assert.ErrorIs(t, err, repository.ErrTokenRevoked)
}

func TestRefreshTokenRepository_MarkUsed_Missing(t *testing.T) {
	repo := setupTokenRepo(t)

	err := repo.MarkUsed(context.Background(), "missing", "jti-2", baseTime)
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)
}

func TestRefreshTokenRepository_RevokeFamily(t *testing.T) {
	repo := setupTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord("a1", "fam-a", 1)))
	require.NoError(t, repo.Create(ctx, newRecord("a2", "fam-a", 1)))
	require.NoError(t, repo.Create(ctx, newRecord("b1", "fam-b", 1)))
	require.NoError(t, repo.Create(ctx, newRecord("c1", "fam-a", 2)))

	n, err := repo.RevokeFamily(ctx, "fam-a", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for jti, revoked := range map[string]bool{"a1": true, "a2": true, "b1": false, "c1": false} {
		found, err := repo.FindByJTI(ctx, jti)
		require.NoError(t, err)
		assert.Equal(t, revoked, found.IsRevoked, jti)
	}

	// Idempotent
	n, err = repo.RevokeFamily(ctx, "fam-a", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.RevokeFamily(ctx, "fam-unknown", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRefreshTokenRepository_RevokeAllForUser(t *testing.T) {
	repo := setupTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord("a1", "fam-a", 1)))
	require.NoError(t, repo.Create(ctx, newRecord("b1", "fam-b", 1)))
	require.NoError(t, repo.Create(ctx, newRecord("c1", "fam-c", 2)))

	n, err := repo.RevokeAllForUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	other, err := repo.FindByJTI(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, other.IsRevoked)
}

func TestRefreshTokenRepository_ListActiveByUser(t *testing.T) {
	repo := setupTokenRepo(t)
	ctx := context.Background()

	active := newRecord("active", "fam-1", 1)
	used := newRecord("used", "fam-2", 1)
	expired := newRecord("expired", "fam-3", 1)
	expired.ExpiresAt = baseTime.Add(-time.Minute)
	revoked := newRecord("revoked", "fam-4", 1)
	otherUser := newRecord("other", "fam-5", 2)

	for _, rec := range []*models.RefreshToken{active, used, expired, revoked, otherUser} {
		require.NoError(t, repo.Create(ctx, rec))
	}
	require.NoError(t, repo.MarkUsed(ctx, "used", "next", baseTime))
	_, err := repo.RevokeFamily(ctx, "fam-4", 1)
	require.NoError(t, err)

	records, err := repo.ListActiveByUser(ctx, 1, baseTime)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "active", records[0].JTI)
}

func TestRefreshTokenRepository_ListFamilies(t *testing.T) {
	repo := setupTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord("a1", "fam-a", 1)))
	require.NoError(t, repo.Create(ctx, newRecord("a2", "fam-a", 1)))
	require.NoError(t, repo.Create(ctx, newRecord("b1", "fam-b", 1)))
	require.NoError(t, repo.Create(ctx, newRecord("c1", "fam-c", 2)))

	families, err := repo.ListFamilies(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"fam-a", "fam-b"}, families)
}

func TestRefreshTokenRepository_DeleteExpired(t *testing.T) {
	repo := setupTokenRepo(t)
	ctx := context.Background()

	old := newRecord("old", "fam-1", 1)
	old.ExpiresAt = baseTime.Add(-48 * time.Hour)
	recent := newRecord("recent", "fam-1", 1)
	recent.ExpiresAt = baseTime.Add(-time.Hour)
	live := newRecord("live", "fam-1", 1)

	for _, rec := range []*models.RefreshToken{old, recent, live} {
		require.NoError(t, repo.Create(ctx, rec))
	}

	n, err := repo.DeleteExpired(ctx, baseTime.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.FindByJTI(ctx, "old")
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)
	_, err = repo.FindByJTI(ctx, "recent")
	assert.NoError(t, err)
	_, err = repo.FindByJTI(ctx, "live")
	assert.NoError(t, err)
}

func TestRefreshTokenRepository_TransactionRollback(t *testing.T) {
	repo := setupTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord("jti-1", "fam-1", 1)))

	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(tx repository.RefreshTokenRepository) error {
		if err := tx.MarkUsed(ctx, "jti-1", "jti-2", baseTime); err != nil {
			return err
		}
		if err := tx.Create(ctx, newRecord("jti-2", "fam-1", 1)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	found, err := repo.FindByJTI(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, found.IsUsed)

	_, err = repo.FindByJTI(ctx, "jti-2")
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)
}
