package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/folio/internal/models"
	"github.com/BradenHooton/folio/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertAt(t *testing.T, repo *repositories.MemoryAttemptRepository, key string, at time.Time) {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), &models.AttemptRecord{
		Identifier: key,
		Endpoint:   models.EndpointAuthLogin,
		CreatedAt:  at,
		ResetTime:  at.Add(24 * time.Hour),
	}))
}

func TestMemoryAttemptRepository_InsertAppendsRows(t *testing.T) {
	repo := repositories.NewMemoryAttemptRepository()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	insertAt(t, repo, "login_failed:a@example.com", now)
	insertAt(t, repo, "login_failed:a@example.com", now)

	count, err := repo.CountSince(context.Background(), "login_failed:a@example.com", models.EndpointAuthLogin, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, repo.Len())
}

func TestMemoryAttemptRepository_CountSinceIgnoresOldRowsAndOtherEndpoints(t *testing.T) {
	repo := repositories.NewMemoryAttemptRepository()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	insertAt(t, repo, "login_failed:a@example.com", now.Add(-25*time.Hour))
	insertAt(t, repo, "login_failed:a@example.com", now.Add(-time.Minute))
	require.NoError(t, repo.Insert(ctx, &models.AttemptRecord{
		Identifier: "login_failed:a@example.com",
		Endpoint:   "contact_form",
		CreatedAt:  now,
	}))

	count, err := repo.CountSince(ctx, "login_failed:a@example.com", models.EndpointAuthLogin, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryAttemptRepository_LatestSince(t *testing.T) {
	repo := repositories.NewMemoryAttemptRepository()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	latest, err := repo.LatestSince(ctx, "login_failed:a@example.com", models.EndpointAuthLogin, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Nil(t, latest)

	insertAt(t, repo, "login_failed:a@example.com", now.Add(-10*time.Minute))
	insertAt(t, repo, "login_failed:a@example.com", now.Add(-2*time.Minute))
	insertAt(t, repo, "login_failed:a@example.com", now.Add(-5*time.Minute))

	latest, err = repo.LatestSince(ctx, "login_failed:a@example.com", models.EndpointAuthLogin, now.Add(-time.Hour))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, now.Add(-2*time.Minute), *latest)
}

func TestMemoryAttemptRepository_DeleteByIdentifierIsIdempotent(t *testing.T) {
	repo := repositories.NewMemoryAttemptRepository()
	ctx := context.Background()
	now := time.Now()

	insertAt(t, repo, "login_failed:a@example.com", now)
	insertAt(t, repo, "login_failed_ip:10.0.0.1", now)

	deleted, err := repo.DeleteByIdentifier(ctx, "login_failed:a@example.com", models.EndpointAuthLogin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = repo.DeleteByIdentifier(ctx, "login_failed:a@example.com", models.EndpointAuthLogin)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
	assert.Equal(t, 1, repo.Len())
}

func TestMemoryAttemptRepository_ListSinceKeepsInsertionOrder(t *testing.T) {
	repo := repositories.NewMemoryAttemptRepository()
	now := time.Now()

	insertAt(t, repo, "login_failed:a@example.com", now)
	insertAt(t, repo, "login_failed_ip:10.0.0.1", now)
	insertAt(t, repo, "login_failed:b@example.com", now)

	records, err := repo.ListSince(context.Background(), models.EndpointAuthLogin, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "login_failed:a@example.com", records[0].Identifier)
	assert.Equal(t, "login_failed_ip:10.0.0.1", records[1].Identifier)
	assert.Equal(t, "login_failed:b@example.com", records[2].Identifier)
}

func TestMemoryAttemptRepository_DeleteCreatedBefore(t *testing.T) {
	repo := repositories.NewMemoryAttemptRepository()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	insertAt(t, repo, "login_failed:a@example.com", now.Add(-48*time.Hour))
	insertAt(t, repo, "login_failed:a@example.com", now.Add(-25*time.Hour))
	insertAt(t, repo, "login_failed:a@example.com", now.Add(-time.Hour))

	deleted, err := repo.DeleteCreatedBefore(context.Background(), models.EndpointAuthLogin, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Equal(t, 1, repo.Len())
}
