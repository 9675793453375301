package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/config"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.SQLitePath = ":memory:"

	store, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer store.DB.Close()

	assert.Equal(t, "sqlite", store.DB.Driver())
	batches, err := store.Batches.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Driver = "mysql"

	_, _, err := Connect(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported database driver")
}
