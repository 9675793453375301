package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/blob"
	"github.com/mushroomlog/mushroomlog/internal/config"
	"github.com/mushroomlog/mushroomlog/internal/database"
	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/repositories"
	"github.com/mushroomlog/mushroomlog/internal/repositories/sqlite"
)

const testUser = "user-1"

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(userID, event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, userID+":"+event)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type testEnv struct {
	store    *repositories.Store
	blobs    *blob.MemoryStore
	notifier *recordingNotifier
	configs  *ConfigService
	batches  *BatchService
	images   *ImageService
	stats    *StatsService
	reports  *ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn, err := sqlite.OpenDB(":memory:")
	require.NoError(t, err)
	_, err = database.NewSQLiteMigrator(conn, zap.NewNop()).RunMigrations(context.Background())
	require.NoError(t, err)

	store := sqlite.NewStore(conn)
	t.Cleanup(store.DB.Close)

	env := &testEnv{store: store, blobs: blob.NewMemory(), notifier: &recordingNotifier{}}
	env.configs = NewConfigService(store.Configs, store.Batches, nil, config.DefaultUserConfigs, env.notifier, zap.NewNop())
	env.batches = NewBatchService(store.Batches, env.configs, nil, env.notifier, zap.NewNop())
	env.images = NewImageService(env.blobs, blob.URLBuilder{Base: "http://localhost:8080/images", Bucket: "grow_images"}, env.batches, zap.NewNop())
	env.stats = NewStatsService(env.batches, env.configs, nil)
	env.reports = NewReportService(env.batches, env.stats)
	return env
}

func (e *testEnv) create(t *testing.T, req models.CreateBatchRequest) []*models.Batch {
	t.Helper()
	out, err := e.batches.Create(context.Background(), testUser, &req)
	require.NoError(t, err)
	return out
}

func displayIDs(batches []*models.Batch) []string {
	out := make([]string, len(batches))
	for i, b := range batches {
		out[i] = b.DisplayID
	}
	return out
}

func strPtr(s string) *string { return &s }
