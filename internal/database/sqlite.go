package database

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// NewSQLiteMigrator creates a migration runner for an SQLite handle.
func NewSQLiteMigrator(db *sql.DB, logger *zap.Logger) *Migrator {
	return &Migrator{store: &sqliteMigrationStore{db: db}, logger: logger.Named("migrator")}
}

type sqliteMigrationStore struct {
	db *sql.DB
}

func (s *sqliteMigrationStore) dialect() string { return "sqlite" }

func (s *sqliteMigrationStore) ensureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT UNIQUE NOT NULL,
			applied_at TEXT NOT NULL
		)`)
	return err
}

func (s *sqliteMigrationStore) applied(ctx context.Context) (map[string]bool, error) {
	applied := make(map[string]bool)

	rows, err := s.db.QueryContext(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, err
		}
		applied[filename] = true
	}
	return applied, rows.Err()
}

func (s *sqliteMigrationStore) apply(ctx context.Context, filename, body string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_migrations (filename, applied_at) VALUES (?, ?)`,
		filename, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	return tx.Commit()
}
