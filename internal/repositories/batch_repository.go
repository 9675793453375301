package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mushroomlog/mushroomlog/internal/models"
)

const batchColumns = `id, user_id, display_id, to_char(created_date, 'YYYY-MM-DD'), species, operation_type,
	quantity, unit, parent_id, to_char(end_date, 'YYYY-MM-DD'), COALESCE(outcome, ''), status_kind,
	COALESCE(notes, ''), image_urls, created_at, updated_at`

type BatchRepository struct {
	DB *pgxpool.Pool
}

func NewBatchRepository(db *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{DB: db}
}

func scanBatch(row pgx.Row) (*models.Batch, error) {
	var b models.Batch
	err := row.Scan(&b.ID, &b.UserID, &b.DisplayID, &b.CreatedDate, &b.Species, &b.OperationType,
		&b.Quantity, &b.Unit, &b.ParentID, &b.EndDate, &b.Outcome, &b.StatusKind,
		&b.Notes, &b.ImageURLs, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if b.ImageURLs == nil {
		b.ImageURLs = []string{}
	}
	return &b, nil
}

func (r *BatchRepository) query(ctx context.Context, sql string, args ...any) ([]*models.Batch, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []*models.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// List returns the user's batches, newest createdDate first
func (r *BatchRepository) List(ctx context.Context, userID string) ([]*models.Batch, error) {
	return r.query(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE user_id = $1
		 ORDER BY created_date DESC, display_id DESC`, userID)
}

func (r *BatchRepository) Get(ctx context.Context, userID, id string) (*models.Batch, error) {
	b, err := scanBatch(r.DB.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE user_id = $1 AND id = $2`, userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (r *BatchRepository) GetMany(ctx context.Context, userID string, ids []string) ([]*models.Batch, error) {
	return r.query(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE user_id = $1 AND id = ANY($2)
		 ORDER BY display_id`, userID, ids)
}

func (r *BatchRepository) ListBySpecies(ctx context.Context, userID, species string) ([]*models.Batch, error) {
	return r.query(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE user_id = $1 AND species = $2`, userID, species)
}

// likePrefix escapes LIKE wildcards so prefix matches literally
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func displayIDsWithPrefix(ctx context.Context, q interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
}, userID, prefix string) ([]string, error) {
	rows, err := q.Query(ctx,
		`SELECT display_id FROM batches WHERE user_id = $1 AND display_id LIKE $2`,
		userID, likePrefix(prefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (r *BatchRepository) DisplayIDsWithPrefix(ctx context.Context, userID, prefix string) ([]string, error) {
	return displayIDsWithPrefix(ctx, r.DB, userID, prefix)
}

// Apply runs the whole write in one transaction. Code allocation takes a
// per-user advisory lock so concurrent sessions cannot hand out the same suffix.
func (r *BatchRepository) Apply(ctx context.Context, userID string, w BatchWrite) error {
	if w.Empty() {
		return nil
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if w.AllocatePrefix != "" {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "batches:"+userID); err != nil {
			return fmt.Errorf("failed to lock display ids: %w", err)
		}
		existing, err := displayIDsWithPrefix(ctx, tx, userID, w.AllocatePrefix)
		if err != nil {
			return fmt.Errorf("failed to read display ids: %w", err)
		}
		AssignDisplayIDs(&w, existing)
	}

	now := time.Now()
	batch := &pgx.Batch{}
	for _, b := range w.Insert {
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		b.UpdatedAt = now
		batch.Queue(
			`INSERT INTO batches(id, user_id, display_id, created_date, species, operation_type, quantity, unit,
			                     parent_id, end_date, outcome, status_kind, notes, image_urls, created_at, updated_at)
			 VALUES($1, $2, $3, $4::text::date, $5, $6, $7, $8, $9, $10::text::date, NULLIF($11, ''), $12, NULLIF($13, ''), $14, $15, $16)`,
			b.ID, userID, b.DisplayID, b.CreatedDate, b.Species, b.OperationType, b.Quantity, b.Unit,
			b.ParentID, b.EndDate, b.Outcome, string(b.StatusKind), b.Notes, imageURLs(b), b.CreatedAt, b.UpdatedAt)
	}
	for _, b := range w.Update {
		b.UpdatedAt = now
		batch.Queue(
			`UPDATE batches SET display_id = $3, created_date = $4::text::date, species = $5, operation_type = $6,
			        quantity = $7, unit = $8, parent_id = $9, end_date = $10::text::date, outcome = NULLIF($11, ''),
			        status_kind = $12, notes = NULLIF($13, ''), image_urls = $14, updated_at = $15
			 WHERE user_id = $1 AND id = $2`,
			userID, b.ID, b.DisplayID, b.CreatedDate, b.Species, b.OperationType, b.Quantity, b.Unit,
			b.ParentID, b.EndDate, b.Outcome, string(b.StatusKind), b.Notes, imageURLs(b), b.UpdatedAt)
	}
	if len(w.Delete) > 0 {
		batch.Queue(`DELETE FROM batches WHERE user_id = $1 AND id = ANY($2)`, userID, w.Delete)
	}

	if batch.Len() > 0 {
		if err := execBatch(tx.SendBatch(ctx, batch), w); err != nil {
			return err
		}
	}

	if len(w.Configs) > 0 {
		if err := saveConfigRows(ctx, tx, userID, w.Configs); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// execBatch drains results in the order Apply queued them.
func execBatch(results pgx.BatchResults, w BatchWrite) error {
	defer results.Close()
	for range w.Insert {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
	}
	for _, b := range w.Update {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("failed to update batch %s: %w", b.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("batch %s: %w", b.ID, ErrNotFound)
		}
	}
	if len(w.Delete) > 0 {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to delete batches: %w", err)
		}
	}
	return results.Close()
}

func imageURLs(b *models.Batch) []string {
	if b.ImageURLs == nil {
		return []string{}
	}
	return b.ImageURLs
}
