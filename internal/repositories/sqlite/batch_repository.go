package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/repositories"
)

const batchColumns = `id, user_id, display_id, created_date, species, operation_type, quantity, unit,
	parent_id, end_date, COALESCE(outcome, ''), status_kind, COALESCE(notes, ''), image_urls, created_at, updated_at`

type BatchRepository struct {
	DB *sql.DB
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*models.Batch, error) {
	var (
		b                    models.Batch
		parent, end          sql.NullString
		status               string
		images               string
		createdAt, updatedAt string
	)
	err := row.Scan(&b.ID, &b.UserID, &b.DisplayID, &b.CreatedDate, &b.Species, &b.OperationType,
		&b.Quantity, &b.Unit, &parent, &end, &b.Outcome, &status, &b.Notes, &images, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		b.ParentID = &parent.String
	}
	if end.Valid {
		b.EndDate = &end.String
	}
	b.StatusKind = models.StatusKind(status)
	if err := json.Unmarshal([]byte(images), &b.ImageURLs); err != nil {
		return nil, fmt.Errorf("decode image urls of %s: %w", b.ID, err)
	}
	if b.ImageURLs == nil {
		b.ImageURLs = []string{}
	}
	b.CreatedAt = parseTimestamp(createdAt)
	b.UpdatedAt = parseTimestamp(updatedAt)
	return &b, nil
}

func queryBatches(ctx context.Context, q queryer, query string, args ...any) ([]*models.Batch, error) {
	rows, err := q.QueryContext(ctx, query, args...)
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

func (r *BatchRepository) List(ctx context.Context, userID string) ([]*models.Batch, error) {
	return queryBatches(ctx, r.DB,
		`SELECT `+batchColumns+` FROM batches WHERE user_id = ?
		 ORDER BY created_date DESC, display_id DESC`, userID)
}

func (r *BatchRepository) Get(ctx context.Context, userID, id string) (*models.Batch, error) {
	b, err := scanBatch(r.DB.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE user_id = ? AND id = ?`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	return b, err
}

func (r *BatchRepository) GetMany(ctx context.Context, userID string, ids []string) ([]*models.Batch, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	return queryBatches(ctx, r.DB,
		`SELECT `+batchColumns+` FROM batches WHERE user_id = ? AND id IN (`+placeholders+`)
		 ORDER BY display_id`, args...)
}

func (r *BatchRepository) ListBySpecies(ctx context.Context, userID, species string) ([]*models.Batch, error) {
	return queryBatches(ctx, r.DB,
		`SELECT `+batchColumns+` FROM batches WHERE user_id = ? AND species = ?`, userID, species)
}

// substr comparison keeps the match literal and case sensitive, unlike LIKE.
func displayIDsWithPrefix(ctx context.Context, q queryer, userID, prefix string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT display_id FROM batches WHERE user_id = ? AND substr(display_id, 1, ?) = ?`,
		userID, len(prefix), prefix)
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

func encodeImages(b *models.Batch) (string, error) {
	urls := b.ImageURLs
	if urls == nil {
		urls = []string{}
	}
	raw, err := json.Marshal(urls)
	return string(raw), err
}

// Apply runs the write in one transaction. The single connection serializes
// writers, so the prefix read and the inserts cannot interleave with another Apply.
func (r *BatchRepository) Apply(ctx context.Context, userID string, w repositories.BatchWrite) error {
	if w.Empty() {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if w.AllocatePrefix != "" {
		existing, err := displayIDsWithPrefix(ctx, tx, userID, w.AllocatePrefix)
		if err != nil {
			return fmt.Errorf("failed to read display ids: %w", err)
		}
		repositories.AssignDisplayIDs(&w, existing)
	}

	now := time.Now()
	for _, b := range w.Insert {
		images, err := encodeImages(b)
		if err != nil {
			return err
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		b.UpdatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO batches(id, user_id, display_id, created_date, species, operation_type, quantity, unit,
			                     parent_id, end_date, outcome, status_kind, notes, image_urls, created_at, updated_at)
			 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, userID, b.DisplayID, b.CreatedDate, b.Species, b.OperationType, b.Quantity, b.Unit,
			b.ParentID, b.EndDate, nullString(b.Outcome), string(b.StatusKind), nullString(b.Notes), images,
			timestamp(b.CreatedAt), timestamp(b.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
	}

	for _, b := range w.Update {
		images, err := encodeImages(b)
		if err != nil {
			return err
		}
		b.UpdatedAt = now
		res, err := tx.ExecContext(ctx,
			`UPDATE batches SET display_id = ?, created_date = ?, species = ?, operation_type = ?, quantity = ?,
			        unit = ?, parent_id = ?, end_date = ?, outcome = ?, status_kind = ?, notes = ?, image_urls = ?,
			        updated_at = ?
			 WHERE user_id = ? AND id = ?`,
			b.DisplayID, b.CreatedDate, b.Species, b.OperationType, b.Quantity,
			b.Unit, b.ParentID, b.EndDate, nullString(b.Outcome), string(b.StatusKind), nullString(b.Notes), images,
			timestamp(b.UpdatedAt), userID, b.ID)
		if err != nil {
			return fmt.Errorf("failed to update batch %s: %w", b.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("batch %s: %w", b.ID, repositories.ErrNotFound)
		}
	}

	for _, id := range w.Delete {
		if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE user_id = ? AND id = ?`, userID, id); err != nil {
			return fmt.Errorf("failed to delete batch %s: %w", id, err)
		}
	}

	if len(w.Configs) > 0 {
		if err := saveConfigRows(ctx, tx, userID, w.Configs); err != nil {
			return err
		}
	}

	return tx.Commit()
}
