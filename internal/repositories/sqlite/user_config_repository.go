package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mushroomlog/mushroomlog/internal/models"
)

type UserConfigRepository struct {
	DB *sql.DB
}

func (r *UserConfigRepository) Get(ctx context.Context, userID string) ([]models.ConfigRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT config_key, config_value FROM user_configs WHERE user_id = ? ORDER BY config_key`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ConfigRow
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out = append(out, models.ConfigRow{Key: key, Value: []byte(value)})
	}
	return out, rows.Err()
}

func (r *UserConfigRepository) Save(ctx context.Context, userID string, rows []models.ConfigRow) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveConfigRows(ctx, tx, userID, rows); err != nil {
		return err
	}
	return tx.Commit()
}

func saveConfigRows(ctx context.Context, tx *sql.Tx, userID string, rows []models.ConfigRow) error {
	now := timestamp(time.Now())
	for _, row := range rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_configs (user_id, config_key, config_value, updated_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (user_id, config_key)
			 DO UPDATE SET config_value = excluded.config_value, updated_at = excluded.updated_at`,
			userID, row.Key, string(row.Value), now)
		if err != nil {
			return fmt.Errorf("failed to save config %s: %w", row.Key, err)
		}
	}
	return nil
}
