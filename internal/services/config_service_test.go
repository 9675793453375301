package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mushroomlog/mushroomlog/internal/models"
)

func TestConfigGetFallsBackToDefaults(t *testing.T) {
	env := newTestEnv(t)
	cfg, err := env.configs.Get(context.Background(), testUser)
	require.NoError(t, err)
	assert.Len(t, cfg.Species, 6)
	assert.Equal(t, "zh", cfg.Language)
	assert.Equal(t, []string{"Agar", "Liquid Culture", "Grain", "Substrate"}, cfg.RecipeTypes)
}

func TestConfigGetIgnoresCorruptRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.Configs.Save(ctx, testUser, []models.ConfigRow{
		{Key: models.ConfigKeySpecies, Value: []byte("{broken")},
		{Key: models.ConfigKeyLanguage, Value: []byte(`"en"`)},
	}))

	cfg, err := env.configs.Get(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, cfg.Species, 6)
	assert.Equal(t, "en", cfg.Language)
}

func TestConfigSaveRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cfg, err := env.configs.Get(ctx, testUser)
	require.NoError(t, err)

	cfg.Species = append(cfg.Species, models.SpeciesConfig{ID: "7", Name: "Shiitake", Abbreviation: "SH"})
	cfg.Language = ""
	require.NoError(t, env.configs.Save(ctx, testUser, cfg))

	got, err := env.configs.Get(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, got.Species, 7)
	assert.Equal(t, "zh", got.Language)
	assert.Contains(t, env.notifier.Events(), testUser+":"+EventConfigsChanged)

	// the new species is usable right away
	out := env.create(t, models.CreateBatchRequest{
		CreatedDate: "2024-03-01", Species: "Shiitake", OperationType: "Agar work", Quantity: 1,
	})
	assert.Equal(t, "240301-SH-01", out[0].DisplayID)
}

func TestConfigSaveValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := map[string]*models.UserConfigs{
		"hyphen in abbreviation":  {Species: []models.SpeciesConfig{{ID: "1", Name: "A", Abbreviation: "A-B"}}},
		"missing abbreviation":    {Species: []models.SpeciesConfig{{ID: "1", Name: "A"}}},
		"comma in abbreviation":   {Species: []models.SpeciesConfig{{ID: "1", Name: "Wine Cap", Abbreviation: "W,C"}}},
		"quote in abbreviation":   {Species: []models.SpeciesConfig{{ID: "1", Name: "Wine Cap", Abbreviation: `W"C`}}},
		"newline in abbreviation": {Species: []models.SpeciesConfig{{ID: "1", Name: "Wine Cap", Abbreviation: "W\nC"}}},
		"duplicate id": {Species: []models.SpeciesConfig{
			{ID: "1", Name: "A", Abbreviation: "A"}, {ID: "1", Name: "B", Abbreviation: "B"},
		}},
		"duplicate name": {Species: []models.SpeciesConfig{
			{ID: "1", Name: "A", Abbreviation: "A"}, {ID: "2", Name: "A", Abbreviation: "B"},
		}},
		"unknown status kind": {Statuses: []models.StatusConfig{{ID: "1", Name: "ok", Kind: "great"}}},
		"unknown language":    {Language: "fr"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, env.configs.Save(ctx, testUser, cfg), ErrValidation)
		})
	}
}

func TestConfigSaveCascadesSpeciesRename(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ob := env.create(t, models.CreateBatchRequest{
		CreatedDate: "2024-01-15", Species: "Oyster Blue", OperationType: "Agar work", Quantity: 2,
	})
	lm := env.create(t, models.CreateBatchRequest{
		CreatedDate: "2024-01-15", Species: "Lions' Mane", OperationType: "Agar work", Quantity: 1,
	})[0]

	cfg, err := env.configs.Get(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, "1", cfg.Species[0].ID)
	cfg.Species[0].Name = "Oyster Sky"
	cfg.Species[0].Abbreviation = "OS"
	require.NoError(t, env.configs.Save(ctx, testUser, cfg))

	for _, b := range ob {
		got, err := env.batches.Get(ctx, testUser, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Oyster Sky", got.Species)
		assert.Equal(t, "240115-OS-"+b.DisplayID[len(b.DisplayID)-2:], got.DisplayID)
	}
	untouched, err := env.batches.Get(ctx, testUser, lm.ID)
	require.NoError(t, err)
	assert.Equal(t, lm.DisplayID, untouched.DisplayID)

	saved, err := env.configs.Get(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "Oyster Sky", saved.Species[0].Name)
	assert.Contains(t, env.notifier.Events(), testUser+":"+EventBatchesChanged)
}

func TestConfigRenameKeepsCodesWhenAbbreviationUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.create(t, models.CreateBatchRequest{
		CreatedDate: "2024-01-15", Species: "Oyster Tan", OperationType: "Agar work", Quantity: 1,
	})[0]

	cfg, err := env.configs.Get(ctx, testUser)
	require.NoError(t, err)
	cfg.Species[1].Name = "Golden Oyster"
	require.NoError(t, env.configs.Save(ctx, testUser, cfg))

	got, err := env.batches.Get(ctx, testUser, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Golden Oyster", got.Species)
	assert.Equal(t, "240115-OT-01", got.DisplayID)
}

func TestConfigSaveReclassifiesBatchesOnKindChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	plate := env.create(t, models.CreateBatchRequest{CreatedDate: "2024-03-01", Species: "Oyster Blue", OperationType: "Agar work", Quantity: 1})[0]
	untouched := env.create(t, models.CreateBatchRequest{CreatedDate: "2024-03-01", Species: "Oyster Tan", OperationType: "Agar work", Quantity: 1})[0]

	_, err := env.batches.Update(ctx, testUser, plate.ID, &models.UpdateBatchRequest{
		CreatedDate: "2024-03-01", Species: "Oyster Blue", OperationType: "Agar work", Quantity: 1, Outcome: "轻微感染",
	})
	require.NoError(t, err)
	got, err := env.batches.Get(ctx, testUser, plate.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusHealthy, got.StatusKind)

	cfg, err := env.configs.Get(ctx, testUser)
	require.NoError(t, err)
	for i := range cfg.Statuses {
		if cfg.Statuses[i].Name == "轻微感染" {
			cfg.Statuses[i].Kind = models.StatusContaminated
		}
	}
	require.NoError(t, env.configs.Save(ctx, testUser, cfg))

	got, err = env.batches.Get(ctx, testUser, plate.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusContaminated, got.StatusKind)
	other, err := env.batches.Get(ctx, testUser, untouched.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, other.StatusKind)
	assert.Contains(t, env.notifier.Events(), testUser+":"+EventBatchesChanged)
}
