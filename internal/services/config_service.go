package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/cache"
	"github.com/mushroomlog/mushroomlog/internal/displayid"
	"github.com/mushroomlog/mushroomlog/internal/metrics"
	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/repositories"
)

// ConfigService owns the per-user taxonomy: species, operations, statuses,
// recipe types and UI language.
type ConfigService struct {
	Repo     repositories.ConfigStore
	Batches  repositories.BatchStore
	Cache    *cache.Cache
	defaults func() (models.UserConfigs, error)
	notifier Notifier
	logger   *zap.Logger
}

func NewConfigService(
	repo repositories.ConfigStore,
	batches repositories.BatchStore,
	c *cache.Cache,
	defaults func() (models.UserConfigs, error),
	notifier Notifier,
	logger *zap.Logger,
) *ConfigService {
	return &ConfigService{
		Repo:     repo,
		Batches:  batches,
		Cache:    c,
		defaults: defaults,
		notifier: notifierOrNop(notifier),
		logger:   logger.Named("configs"),
	}
}

// Get returns the user's configuration with defaults filling missing keys.
func (s *ConfigService) Get(ctx context.Context, userID string) (*models.UserConfigs, error) {
	key := cache.ConfigsKey(userID)
	if data, ok := s.Cache.GetCached(ctx, key); ok {
		var cfg models.UserConfigs
		if err := json.Unmarshal(data, &cfg); err == nil {
			return &cfg, nil
		}
	}

	cfg, err := s.defaults()
	if err != nil {
		return nil, err
	}
	rows, err := s.Repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load configs: %w", err)
	}
	for _, row := range rows {
		if err := decodeRow(&cfg, row); err != nil {
			// a corrupt row falls back to the default for that key
			s.logger.Warn("ignoring unreadable config row",
				zap.String("user_id", userID), zap.String("key", row.Key), zap.Error(err))
		}
	}

	if data, err := json.Marshal(cfg); err == nil {
		s.Cache.SetCached(ctx, key, data, cache.ConfigsTTL)
	}
	return &cfg, nil
}

func decodeRow(cfg *models.UserConfigs, row models.ConfigRow) error {
	switch row.Key {
	case models.ConfigKeySpecies:
		var v []models.SpeciesConfig
		if err := json.Unmarshal(row.Value, &v); err != nil {
			return err
		}
		cfg.Species = v
	case models.ConfigKeyOperations:
		var v []models.OperationConfig
		if err := json.Unmarshal(row.Value, &v); err != nil {
			return err
		}
		cfg.Operations = v
	case models.ConfigKeyStatuses:
		var v []models.StatusConfig
		if err := json.Unmarshal(row.Value, &v); err != nil {
			return err
		}
		cfg.Statuses = v
	case models.ConfigKeyRecipeTypes:
		var v []string
		if err := json.Unmarshal(row.Value, &v); err != nil {
			return err
		}
		cfg.RecipeTypes = v
	case models.ConfigKeyLanguage:
		var v string
		if err := json.Unmarshal(row.Value, &v); err != nil {
			return err
		}
		cfg.Language = v
	}
	return nil
}

func encodeRows(cfg *models.UserConfigs) ([]models.ConfigRow, error) {
	values := []struct {
		key string
		v   any
	}{
		{models.ConfigKeySpecies, cfg.Species},
		{models.ConfigKeyOperations, cfg.Operations},
		{models.ConfigKeyStatuses, cfg.Statuses},
		{models.ConfigKeyRecipeTypes, cfg.RecipeTypes},
		{models.ConfigKeyLanguage, cfg.Language},
	}
	rows := make([]models.ConfigRow, 0, len(values))
	for _, kv := range values {
		raw, err := json.Marshal(kv.v)
		if err != nil {
			return nil, err
		}
		rows = append(rows, models.ConfigRow{Key: kv.key, Value: raw})
	}
	return rows, nil
}

func validateConfigs(cfg *models.UserConfigs) error {
	ids := make(map[string]bool)
	names := make(map[string]bool)
	for _, sp := range cfg.Species {
		if strings.TrimSpace(sp.ID) == "" || strings.TrimSpace(sp.Name) == "" {
			return invalid("species id and name are required")
		}
		if strings.TrimSpace(sp.Abbreviation) == "" || strings.ContainsAny(sp.Abbreviation, "-,\"\r\n") {
			return invalid("species %q needs an abbreviation without hyphens, commas, quotes or line breaks", sp.Name)
		}
		if ids[sp.ID] {
			return invalid("duplicate species id %q", sp.ID)
		}
		if names[sp.Name] {
			return invalid("duplicate species name %q", sp.Name)
		}
		ids[sp.ID], names[sp.Name] = true, true
	}
	for _, op := range cfg.Operations {
		if strings.TrimSpace(op.Name) == "" {
			return invalid("operation name is required")
		}
	}
	for _, st := range cfg.Statuses {
		if strings.TrimSpace(st.Name) == "" {
			return invalid("status name is required")
		}
		if st.Kind != "" && !st.Kind.Valid() {
			return invalid("status %q has unknown kind %q", st.Name, st.Kind)
		}
	}
	switch cfg.Language {
	case "", "zh", "en":
	default:
		return invalid("unsupported language %q", cfg.Language)
	}
	return nil
}

// Save replaces every configuration key. A species that keeps its id but
// changes name or abbreviation is cascaded onto the user's batches, in the
// same transaction as the config rows.
func (s *ConfigService) Save(ctx context.Context, userID string, cfg *models.UserConfigs) error {
	if cfg.Language == "" {
		cfg.Language = "zh"
	}
	if err := validateConfigs(cfg); err != nil {
		return err
	}

	current, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	rows, err := encodeRows(cfg)
	if err != nil {
		return err
	}
	rewritten, err := s.renameCascade(ctx, userID, current.Species, cfg.Species)
	if err != nil {
		return err
	}
	if rewritten, err = s.reclassify(ctx, userID, current.Statuses, cfg, rewritten); err != nil {
		return err
	}

	if len(rewritten) == 0 {
		err = s.Repo.Save(ctx, userID, rows)
	} else {
		err = s.Batches.Apply(ctx, userID, repositories.BatchWrite{Update: rewritten, Configs: rows})
	}
	if err != nil {
		return fmt.Errorf("failed to save configs: %w", err)
	}

	s.Cache.InvalidateConfigCaches(ctx, userID)
	s.notifier.Notify(userID, EventConfigsChanged)
	if len(rewritten) > 0 {
		metrics.BatchesWritten.WithLabelValues("cascade").Add(float64(len(rewritten)))
		s.Cache.InvalidateBatchCaches(ctx, userID)
		s.notifier.Notify(userID, EventBatchesChanged)
		s.logger.Info("config change cascaded",
			zap.String("user_id", userID), zap.Int("batches", len(rewritten)))
	}
	return nil
}

// renameCascade returns the rewritten batches for every species whose name
// or abbreviation changed under a stable id.
func (s *ConfigService) renameCascade(ctx context.Context, userID string, before, after []models.SpeciesConfig) ([]*models.Batch, error) {
	old := make(map[string]models.SpeciesConfig, len(before))
	for _, sp := range before {
		old[sp.ID] = sp
	}

	var out []*models.Batch
	for _, sp := range after {
		prev, ok := old[sp.ID]
		if !ok || (prev.Name == sp.Name && prev.Abbreviation == sp.Abbreviation) {
			continue
		}
		batches, err := s.Batches.ListBySpecies(ctx, userID, prev.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s batches: %w", prev.Name, err)
		}
		for _, b := range batches {
			b.Species = sp.Name
			if prev.Abbreviation != sp.Abbreviation {
				b.DisplayID = displayid.Rename(b.DisplayID, prev.Abbreviation, sp.Abbreviation)
			}
			out = append(out, b)
		}
	}
	return out, nil
}

func statusKinds(statuses []models.StatusConfig) map[string]models.StatusKind {
	out := make(map[string]models.StatusKind, len(statuses))
	for _, st := range statuses {
		out[st.Name] = st.Kind
	}
	return out
}

// reclassify appends to pending every batch whose stored kind no longer
// matches what the new statuses derive for its outcome. Batches already in
// pending are updated in place.
func (s *ConfigService) reclassify(ctx context.Context, userID string, before []models.StatusConfig, after *models.UserConfigs, pending []*models.Batch) ([]*models.Batch, error) {
	old, next := statusKinds(before), statusKinds(after.Statuses)
	changed := len(old) != len(next)
	for name, kind := range next {
		if prev, ok := old[name]; !ok || prev != kind {
			changed = true
			break
		}
	}
	if !changed {
		return pending, nil
	}

	all, err := s.Batches.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batches: %w", err)
	}
	queued := make(map[string]*models.Batch, len(pending))
	for _, b := range pending {
		queued[b.ID] = b
	}
	for _, b := range all {
		kind := statusKind(after, b.Outcome)
		if q, ok := queued[b.ID]; ok {
			q.StatusKind = kind
			continue
		}
		if b.StatusKind == kind {
			continue
		}
		b.StatusKind = kind
		pending = append(pending, b)
	}
	return pending, nil
}
