package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/cache"
	"github.com/mushroomlog/mushroomlog/internal/displayid"
	"github.com/mushroomlog/mushroomlog/internal/grouping"
	"github.com/mushroomlog/mushroomlog/internal/lineage"
	"github.com/mushroomlog/mushroomlog/internal/metrics"
	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/repositories"
	"github.com/mushroomlog/mushroomlog/internal/timeutil"
)

// MaxBulk caps how many unit batches one create or expand may produce.
const MaxBulk = 500

type BatchService struct {
	Repo     repositories.BatchStore
	Configs  *ConfigService
	Cache    *cache.Cache
	notifier Notifier
	logger   *zap.Logger
}

func NewBatchService(repo repositories.BatchStore, configs *ConfigService, c *cache.Cache, notifier Notifier, logger *zap.Logger) *BatchService {
	return &BatchService{
		Repo:     repo,
		Configs:  configs,
		Cache:    c,
		notifier: notifierOrNop(notifier),
		logger:   logger.Named("batches"),
	}
}

// List returns every batch of the user, newest createdDate first.
func (s *BatchService) List(ctx context.Context, userID string) ([]*models.Batch, error) {
	key := cache.BatchesKey(userID)
	if data, ok := s.Cache.GetCached(ctx, key); ok {
		var batches []*models.Batch
		if err := json.Unmarshal(data, &batches); err == nil {
			return batches, nil
		}
	}

	batches, err := s.Repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if batches == nil {
		batches = []*models.Batch{}
	}
	if data, err := json.Marshal(batches); err == nil {
		s.Cache.SetCached(ctx, key, data, cache.BatchesTTL)
	}
	return batches, nil
}

func (s *BatchService) Get(ctx context.Context, userID, id string) (*models.Batch, error) {
	return s.Repo.Get(ctx, userID, id)
}

// Groups returns the date / species::operation grouped view.
func (s *BatchService) Groups(ctx context.Context, userID string) ([]grouping.DateGroup, error) {
	batches, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return grouping.Group(batches), nil
}

// Lineage resolves ancestors and descendants of one batch.
func (s *BatchService) Lineage(ctx context.Context, userID, id string) (*lineage.Result, error) {
	all, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, b := range all {
		if b.ID == id {
			res := lineage.Resolve(b, all)
			return &res, nil
		}
	}
	return nil, ErrNotFound
}

// PreviewDisplayIDs returns the next n codes for species on date without
// reserving them.
func (s *BatchService) PreviewDisplayIDs(ctx context.Context, userID, species, date string, n int) ([]string, error) {
	if n < 1 || n > MaxBulk {
		return nil, invalid("n must be between 1 and %d", MaxBulk)
	}
	if err := validateDate("date", date); err != nil {
		return nil, err
	}
	cfg, err := s.Configs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return displayid.NewGenerator(s.Repo).Generate(ctx, userID, species, date, cfg.Species, n)
}

func (s *BatchService) apply(ctx context.Context, userID, op string, w repositories.BatchWrite) error {
	if err := s.Repo.Apply(ctx, userID, w); err != nil {
		return err
	}
	metrics.BatchesWritten.WithLabelValues(op).Add(float64(len(w.Insert) + len(w.Update) + len(w.Delete)))
	s.Cache.InvalidateBatchCaches(ctx, userID)
	s.notifier.Notify(userID, EventBatchesChanged)
	return nil
}

func statusKind(cfg *models.UserConfigs, outcome string) models.StatusKind {
	if k, ok := cfg.StatusKindFor(outcome); ok {
		return k
	}
	return models.ClassifyOutcome(outcome)
}

func validateDate(field, value string) error {
	if _, err := timeutil.ParseDate(value); err != nil {
		return invalid("%s must be YYYY-MM-DD, got %q", field, value)
	}
	return nil
}

func validateTaxonomy(cfg *models.UserConfigs, species, operation string) error {
	if strings.TrimSpace(species) == "" {
		return invalid("species is required")
	}
	if _, ok := cfg.FindSpecies(species); !ok {
		return invalid("unknown species %q", species)
	}
	if strings.TrimSpace(operation) == "" {
		return invalid("operationType is required")
	}
	for _, op := range cfg.Operations {
		if op.Name == operation {
			return nil
		}
	}
	return invalid("unknown operationType %q", operation)
}

// unitCount converts a vessel quantity into a whole number of unit batches.
func unitCount(quantity float64) (int, error) {
	if quantity != math.Trunc(quantity) {
		return 0, invalid("quantity %v must be a whole number of vessels", quantity)
	}
	if quantity > MaxBulk {
		return 0, invalid("quantity %v exceeds the limit of %d", quantity, MaxBulk)
	}
	return int(quantity), nil
}

func unitFor(operation, requested, fallback string) string {
	if operation == models.HarvestOperation {
		return models.UnitGram
	}
	if requested != "" && requested != models.UnitGram {
		return requested
	}
	if fallback != "" && fallback != models.UnitGram {
		return fallback
	}
	return models.UnitBag
}

func normalizeOptional(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// validateParent rejects dangling parents and, for an existing batch, any
// parent that would close a cycle.
func (s *BatchService) validateParent(ctx context.Context, userID string, self *models.Batch, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if self != nil && *parentID == self.ID {
		return invalid("a batch cannot be its own parent")
	}
	if self == nil {
		if _, err := s.Repo.Get(ctx, userID, *parentID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return invalid("parent batch %s does not exist", *parentID)
			}
			return err
		}
		return nil
	}

	all, err := s.List(ctx, userID)
	if err != nil {
		return err
	}
	found := false
	for _, b := range all {
		if b.ID == *parentID {
			found = true
			break
		}
	}
	if !found {
		return invalid("parent batch %s does not exist", *parentID)
	}
	if lineage.IsDescendant(self, *parentID, all) {
		return invalid("parent batch %s descends from this batch", *parentID)
	}
	return nil
}

// Create logs a new operation. A non-harvest quantity above one becomes that
// many unit batches sharing metadata, with one consecutive block of codes.
func (s *BatchService) Create(ctx context.Context, userID string, req *models.CreateBatchRequest) ([]*models.Batch, error) {
	cfg, err := s.Configs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.CreatedDate == "" {
		req.CreatedDate = timeutil.Today()
	}
	if err := validateDate("createdDate", req.CreatedDate); err != nil {
		return nil, err
	}
	if err := validateTaxonomy(cfg, req.Species, req.OperationType); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}
	parentID := normalizeOptional(req.ParentID)
	if err := s.validateParent(ctx, userID, nil, parentID); err != nil {
		return nil, err
	}

	harvest := req.OperationType == models.HarvestOperation
	count, quantity := 1, req.Quantity
	if !harvest && req.Quantity > 1 {
		if count, err = unitCount(req.Quantity); err != nil {
			return nil, err
		}
		quantity = 1
	}

	prefix, err := displayid.Prefix(req.Species, req.CreatedDate, cfg.Species)
	if err != nil {
		return nil, invalid("%v", err)
	}

	batches := make([]*models.Batch, 0, count)
	for i := 0; i < count; i++ {
		notes := req.Notes
		if count > 1 && parentID != nil {
			notes = fmt.Sprintf("Batch %d/%d. %s", i+1, count, req.Notes)
		}
		b := &models.Batch{
			ID:            uuid.NewString(),
			UserID:        userID,
			CreatedDate:   req.CreatedDate,
			Species:       req.Species,
			OperationType: req.OperationType,
			Quantity:      quantity,
			Unit:          unitFor(req.OperationType, req.Unit, ""),
			Notes:         notes,
			StatusKind:    models.StatusPending,
			ImageURLs:     append([]string{}, req.ImageURLs...),
		}
		if parentID != nil {
			p := *parentID
			b.ParentID = &p
		}
		batches = append(batches, b)
	}

	if err := s.apply(ctx, userID, "create", repositories.BatchWrite{AllocatePrefix: prefix, Insert: batches}); err != nil {
		return nil, fmt.Errorf("failed to create batches: %w", err)
	}
	s.logger.Info("batches created",
		zap.String("user_id", userID), zap.String("species", req.Species),
		zap.String("operation", req.OperationType), zap.Int("count", count))
	return batches, nil
}

// Update edits one batch. A species or date change re-derives the display
// code under the new prefix. Raising a unit batch above one vessel expands it.
func (s *BatchService) Update(ctx context.Context, userID, id string, req *models.UpdateBatchRequest) ([]*models.Batch, error) {
	current, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Configs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := validateDate("createdDate", req.CreatedDate); err != nil {
		return nil, err
	}
	if err := validateTaxonomy(cfg, req.Species, req.OperationType); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}
	endDate := normalizeOptional(req.EndDate)
	if endDate != nil {
		if err := validateDate("endDate", *endDate); err != nil {
			return nil, err
		}
	}
	parentID := normalizeOptional(req.ParentID)
	if err := s.validateParent(ctx, userID, current, parentID); err != nil {
		return nil, err
	}

	updated := current.Clone()
	updated.CreatedDate = req.CreatedDate
	updated.Species = req.Species
	updated.OperationType = req.OperationType
	updated.Quantity = req.Quantity
	updated.Unit = unitFor(req.OperationType, req.Unit, current.Unit)
	updated.ParentID = parentID
	updated.EndDate = endDate
	updated.Outcome = strings.TrimSpace(req.Outcome)
	updated.StatusKind = statusKind(cfg, updated.Outcome)
	updated.Notes = req.Notes
	if req.ImageURLs != nil {
		updated.ImageURLs = append([]string{}, req.ImageURLs...)
	}

	if current.Quantity == 1 && req.Quantity > 1 && !updated.IsHarvest() {
		count, err := unitCount(req.Quantity)
		if err != nil {
			return nil, err
		}
		return s.expand(ctx, userID, cfg, current.ID, updated, count, "update")
	}

	w := repositories.BatchWrite{Update: []*models.Batch{updated}}
	if updated.Species != current.Species || updated.CreatedDate != current.CreatedDate {
		prefix, err := displayid.Prefix(updated.Species, updated.CreatedDate, cfg.Species)
		if err != nil {
			return nil, invalid("%v", err)
		}
		updated.DisplayID = ""
		w.AllocatePrefix = prefix
	}
	if err := s.apply(ctx, userID, "update", w); err != nil {
		return nil, fmt.Errorf("failed to update batch: %w", err)
	}
	return []*models.Batch{updated}, nil
}

// Expand replaces one batch by count unit copies.
func (s *BatchService) Expand(ctx context.Context, userID, id string, count int) ([]*models.Batch, error) {
	if count < 2 || count > MaxBulk {
		return nil, invalid("count must be between 2 and %d", MaxBulk)
	}
	current, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if current.IsHarvest() {
		return nil, invalid("harvest batches record a weight and cannot be expanded")
	}
	cfg, err := s.Configs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, userID, cfg, current.ID, current, count, "expand")
}

// expand inserts count copies of template with fresh ids and codes, deletes
// originalID and re-points its children at the first copy, in one write.
func (s *BatchService) expand(ctx context.Context, userID string, cfg *models.UserConfigs, originalID string, template *models.Batch, count int, op string) ([]*models.Batch, error) {
	prefix, err := displayid.Prefix(template.Species, template.CreatedDate, cfg.Species)
	if err != nil {
		return nil, invalid("%v", err)
	}

	copies := make([]*models.Batch, count)
	for i := range copies {
		c := template.Clone()
		c.ID = uuid.NewString()
		c.DisplayID = ""
		c.Quantity = 1
		c.CreatedAt = time.Time{}
		copies[i] = c
	}

	all, err := s.Repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	var children []*models.Batch
	for _, b := range all {
		if b.Parent() == originalID {
			child := b.Clone()
			first := copies[0].ID
			child.ParentID = &first
			children = append(children, child)
		}
	}

	w := repositories.BatchWrite{
		AllocatePrefix: prefix,
		Insert:         copies,
		Update:         children,
		Delete:         []string{originalID},
	}
	if err := s.apply(ctx, userID, op, w); err != nil {
		return nil, fmt.Errorf("failed to expand batch: %w", err)
	}
	s.logger.Info("batch expanded",
		zap.String("user_id", userID), zap.String("batch_id", originalID), zap.Int("count", count))
	return copies, nil
}

// EditGroup applies shared metadata to a display group. The new total is split
// evenly; a species or date change gives the group a fresh block of codes.
func (s *BatchService) EditGroup(ctx context.Context, userID string, req *models.GroupEditRequest) ([]*models.Batch, error) {
	ids := uniqueIDs(req.IDs)
	if len(ids) == 0 {
		return nil, invalid("ids are required")
	}
	cfg, err := s.Configs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := validateDate("createdDate", req.CreatedDate); err != nil {
		return nil, err
	}
	if err := validateTaxonomy(cfg, req.Species, req.OperationType); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}

	members, err := s.Repo.GetMany(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	if len(members) != len(ids) {
		return nil, ErrNotFound
	}

	regenerate := false
	for _, m := range members {
		if m.Species != req.Species || m.CreatedDate != req.CreatedDate {
			regenerate = true
			break
		}
	}

	share := req.Quantity / float64(len(members))
	updates := make([]*models.Batch, len(members))
	for i, m := range members {
		u := m.Clone()
		u.Species = req.Species
		u.CreatedDate = req.CreatedDate
		u.OperationType = req.OperationType
		u.Quantity = share
		u.Unit = unitFor(req.OperationType, "", m.Unit)
		if regenerate {
			u.DisplayID = ""
		}
		updates[i] = u
	}

	w := repositories.BatchWrite{Update: updates}
	if regenerate {
		if w.AllocatePrefix, err = displayid.Prefix(req.Species, req.CreatedDate, cfg.Species); err != nil {
			return nil, invalid("%v", err)
		}
	}
	if err := s.apply(ctx, userID, "group_edit", w); err != nil {
		return nil, fmt.Errorf("failed to update batch group: %w", err)
	}
	return updates, nil
}

// DeleteGroup removes every listed batch in one write.
func (s *BatchService) DeleteGroup(ctx context.Context, userID string, ids []string) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return invalid("ids are required")
	}
	if err := s.apply(ctx, userID, "delete", repositories.BatchWrite{Delete: ids}); err != nil {
		return fmt.Errorf("failed to delete batch group: %w", err)
	}
	return nil
}

func (s *BatchService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Repo.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.apply(ctx, userID, "delete", repositories.BatchWrite{Delete: []string{id}}); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}

// SetImages replaces the photo list of a batch without touching other fields.
func (s *BatchService) SetImages(ctx context.Context, userID, id string, edit func([]string) []string) (*models.Batch, error) {
	current, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	updated := current.Clone()
	updated.ImageURLs = edit(updated.ImageURLs)
	if err := s.apply(ctx, userID, "update", repositories.BatchWrite{Update: []*models.Batch{updated}}); err != nil {
		return nil, err
	}
	return updated, nil
}

// DropImageURLs strips the given URLs from every batch referencing them, in
// one write. Returns how many batches changed.
func (s *BatchService) DropImageURLs(ctx context.Context, userID string, urls map[string]bool) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}
	all, err := s.Repo.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	var changed []*models.Batch
	for _, b := range all {
		kept := make([]string, 0, len(b.ImageURLs))
		for _, u := range b.ImageURLs {
			if !urls[u] {
				kept = append(kept, u)
			}
		}
		if len(kept) != len(b.ImageURLs) {
			c := b.Clone()
			c.ImageURLs = kept
			changed = append(changed, c)
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}
	if err := s.apply(ctx, userID, "update", repositories.BatchWrite{Update: changed}); err != nil {
		return 0, err
	}
	return len(changed), nil
}

// ImportResult reports what an import did.
type ImportResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Import inserts parsed rows whose id is not yet known. Rows keep their
// display codes; species and operations are not checked against the
// taxonomy so historical data loads as-is.
func (s *BatchService) Import(ctx context.Context, userID string, rows []*models.Batch) (*ImportResult, error) {
	cfg, err := s.Configs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing, err := s.Repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, b := range existing {
		known[b.ID] = true
	}

	res := &ImportResult{}
	var insert []*models.Batch
	for i, b := range rows {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		if known[b.ID] {
			res.Skipped++
			continue
		}
		if b.DisplayID == "" {
			return nil, invalid("row %d: display id is required", i+1)
		}
		if err := validateDate("createdDate", b.CreatedDate); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if b.EndDate = normalizeOptional(b.EndDate); b.EndDate != nil {
			if err := validateDate("endDate", *b.EndDate); err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		b.UserID = userID
		b.Unit = unitFor(b.OperationType, b.Unit, "")
		b.StatusKind = statusKind(cfg, b.Outcome)
		if b.ImageURLs == nil {
			b.ImageURLs = []string{}
		}
		known[b.ID] = true
		insert = append(insert, b)
	}

	if len(insert) > 0 {
		if err := s.apply(ctx, userID, "import", repositories.BatchWrite{Insert: insert}); err != nil {
			return nil, fmt.Errorf("failed to import batches: %w", err)
		}
	}
	res.Inserted = len(insert)
	s.logger.Info("batches imported",
		zap.String("user_id", userID), zap.Int("inserted", res.Inserted), zap.Int("skipped", res.Skipped))
	return res, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
