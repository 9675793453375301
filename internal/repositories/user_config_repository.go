package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mushroomlog/mushroomlog/internal/models"
)

type UserConfigRepository struct {
	DB *pgxpool.Pool
}

func NewUserConfigRepository(db *pgxpool.Pool) *UserConfigRepository {
	return &UserConfigRepository{DB: db}
}

func (r *UserConfigRepository) Get(ctx context.Context, userID string) ([]models.ConfigRow, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT config_key, config_value::text FROM user_configs WHERE user_id = $1 ORDER BY config_key`, userID)
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

// Save upserts every row in one transaction
func (r *UserConfigRepository) Save(ctx context.Context, userID string, rows []models.ConfigRow) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := saveConfigRows(ctx, tx, userID, rows); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func saveConfigRows(ctx context.Context, tx pgx.Tx, userID string, rows []models.ConfigRow) error {
	for _, row := range rows {
		_, err := tx.Exec(ctx,
			`INSERT INTO user_configs (user_id, config_key, config_value, updated_at)
			 VALUES ($1, $2, $3::jsonb, CURRENT_TIMESTAMP)
			 ON CONFLICT (user_id, config_key)
			 DO UPDATE SET config_value = EXCLUDED.config_value, updated_at = CURRENT_TIMESTAMP`,
			userID, row.Key, string(row.Value))
		if err != nil {
			return fmt.Errorf("failed to save config %s: %w", row.Key, err)
		}
	}
	return nil
}
