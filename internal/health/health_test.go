package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mushroomlog/mushroomlog/internal/blob"
	"github.com/mushroomlog/mushroomlog/internal/repositories/sqlite"
)

type fakeDB struct{ err error }

func (f fakeDB) Driver() string             { return "fake" }
func (f fakeDB) Ping(context.Context) error { return f.err }
func (f fakeDB) Close()                     {}

type brokenStore struct{ *blob.MemoryStore }

func (brokenStore) Ping(context.Context) error { return errors.New("bucket missing") }

func TestCheckReadySQLite(t *testing.T) {
	conn, err := sqlite.OpenDB(":memory:")
	require.NoError(t, err)
	store := sqlite.NewStore(conn)
	defer store.DB.Close()

	h := NewHealthChecker(store.DB, nil, blob.NewMemory(), t.TempDir())
	res := h.CheckReady(context.Background())
	assert.Equal(t, "healthy", res.Status)
	require.NotNil(t, res.Database)
	assert.Equal(t, "sqlite", res.Database.Driver)
}

func TestCheckReadyUnhealthyDatabase(t *testing.T) {
	h := NewHealthChecker(fakeDB{err: errors.New("connection refused")}, nil, blob.NewMemory(), t.TempDir())
	res := h.CheckReady(context.Background())
	assert.Equal(t, "unhealthy", res.Status)
	assert.Equal(t, "connection refused", res.Database.Error)
}

func TestCheckDetailed(t *testing.T) {
	h := NewHealthChecker(fakeDB{}, nil, blob.NewMemory(), t.TempDir())
	res := h.CheckDetailed(context.Background())
	assert.Equal(t, "healthy", res.Status)
	assert.Equal(t, "disabled", res.Redis.Status)
	assert.Equal(t, "memory", res.Storage.Driver)
	assert.NotEmpty(t, res.Uptime)
}

func TestCheckDetailedDegradedStorage(t *testing.T) {
	h := NewHealthChecker(fakeDB{}, nil, brokenStore{blob.NewMemory()}, t.TempDir())
	res := h.CheckDetailed(context.Background())
	assert.Equal(t, "degraded", res.Status)
	assert.Equal(t, "bucket missing", res.Storage.Error)
}

func TestCheckBasic(t *testing.T) {
	h := NewHealthChecker(fakeDB{}, nil, blob.NewMemory(), "")
	assert.Equal(t, "healthy", h.CheckBasic().Status)
}
