package repositories

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/database"
	"github.com/mushroomlog/mushroomlog/internal/models"
)

// postgresStore connects to MUSHROOMLOG_TEST_DATABASE_URL and migrates it.
// Rows are scoped to a fresh user id and removed on cleanup.
func postgresStore(t *testing.T) (*Store, string) {
	t.Helper()
	dsn := os.Getenv("MUSHROOMLOG_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("MUSHROOMLOG_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	_, err = database.NewMigrator(pool, zap.NewNop()).RunMigrations(ctx)
	require.NoError(t, err)

	userID := "test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM batches WHERE user_id = $1`, userID)
		pool.Close()
	})
	return NewPostgresStore(pool), userID
}

func TestPostgresApply(t *testing.T) {
	store, userID := postgresStore(t)
	ctx := context.Background()
	repo := store.Batches

	parent := &models.Batch{
		ID: uuid.NewString(), CreatedDate: "2024-01-15", Species: "Oyster",
		OperationType: "Agar work", Quantity: 1, Unit: "皿", StatusKind: models.StatusPending,
	}
	child := &models.Batch{
		ID: uuid.NewString(), CreatedDate: "2024-01-15", Species: "Oyster",
		OperationType: "Agar work", Quantity: 1, Unit: "皿", StatusKind: models.StatusPending,
		ParentID: &parent.ID, ImageURLs: []string{"a.jpg"},
	}
	require.NoError(t, repo.Apply(ctx, userID, BatchWrite{
		AllocatePrefix: "240115-OB-",
		Insert:         []*models.Batch{parent, child},
	}))
	assert.Equal(t, "240115-OB-01", parent.DisplayID)
	assert.Equal(t, "240115-OB-02", child.DisplayID)

	// a second allocation continues after the stored maximum
	third := &models.Batch{
		ID: uuid.NewString(), CreatedDate: "2024-01-15", Species: "Oyster",
		OperationType: "Agar work", Quantity: 1, Unit: "皿", StatusKind: models.StatusPending,
	}
	require.NoError(t, repo.Apply(ctx, userID, BatchWrite{AllocatePrefix: "240115-OB-", Insert: []*models.Batch{third}}))
	assert.Equal(t, "240115-OB-03", third.DisplayID)

	codes, err := repo.DisplayIDsWithPrefix(ctx, userID, "240115-OB-")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"240115-OB-01", "240115-OB-02", "240115-OB-03"}, codes)

	end := "2024-02-01"
	child.EndDate = &end
	child.Outcome = "健康"
	child.StatusKind = models.StatusHealthy
	require.NoError(t, repo.Apply(ctx, userID, BatchWrite{Update: []*models.Batch{child}, Delete: []string{third.ID}}))

	got, err := repo.Get(ctx, userID, child.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, "2024-02-01", *got.EndDate)
	assert.Equal(t, models.StatusHealthy, got.StatusKind)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, parent.ID, *got.ParentID)
	assert.Equal(t, []string{"a.jpg"}, got.ImageURLs)

	_, err = repo.Get(ctx, userID, third.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := repo.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPostgresApplyUpdateMissingRow(t *testing.T) {
	store, userID := postgresStore(t)
	ctx := context.Background()

	kept := &models.Batch{
		ID: uuid.NewString(), DisplayID: "240115-OB-01", CreatedDate: "2024-01-15", Species: "Oyster",
		OperationType: "Agar work", Quantity: 1, Unit: "皿", StatusKind: models.StatusPending,
	}
	missing := &models.Batch{
		ID: uuid.NewString(), DisplayID: "240115-OB-02", CreatedDate: "2024-01-15", Species: "Oyster",
		OperationType: "Agar work", Quantity: 1, Unit: "皿", StatusKind: models.StatusPending,
	}
	err := store.Batches.Apply(ctx, userID, BatchWrite{Insert: []*models.Batch{kept}, Update: []*models.Batch{missing}})
	assert.ErrorIs(t, err, ErrNotFound)

	// the failed update rolls back the insert queued with it
	_, err = store.Batches.Get(ctx, userID, kept.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
