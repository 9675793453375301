package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mushroomlog/mushroomlog/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "defaults", cfg.Source())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "grow_images", cfg.Storage.Bucket)
	assert.Equal(t, "gemini-3-flash-preview", cfg.Assistant.Model)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
database:
  driver: postgres
  host: db.internal
jwt:
  secret: from-file
storage:
  driver: memory
`), 0o600))
	t.Setenv("DATABASE_HOST", "override.internal")
	t.Setenv("ASSISTANT_API_KEY", "key-123")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Source())
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "key-123", cfg.Assistant.APIKey)
	assert.Equal(t, "postgres://postgres:@override.internal:5432/mushroomlog", cfg.DSN())
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STORAGE_DRIVER", "ftp")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "unsupported storage driver")
}

func TestDefaultUserConfigs(t *testing.T) {
	c, err := DefaultUserConfigs()
	require.NoError(t, err)

	require.Len(t, c.Species, 6)
	assert.Equal(t, "OB", c.Species[0].Abbreviation)
	assert.Equal(t, "#3b82f6", c.Species[0].ColorHex)
	require.Len(t, c.Operations, 9)
	assert.Equal(t, models.HarvestOperation, c.Operations[8].Name)
	require.Len(t, c.Statuses, 3)
	assert.Equal(t, models.StatusDiscarded, c.Statuses[2].Kind)
	assert.Equal(t, []string{"Agar", "Liquid Culture", "Grain", "Substrate"}, c.RecipeTypes)
	assert.Equal(t, "zh", c.Language)

	// copies are independent
	c.Species[0].Name = "changed"
	again, err := DefaultUserConfigs()
	require.NoError(t, err)
	assert.Equal(t, "Oyster Blue", again.Species[0].Name)
}
