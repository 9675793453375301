// Package sqlite implements the repository contract on a single SQLite file
// through the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mushroomlog/mushroomlog/internal/repositories"
)

// OpenDB opens path with WAL mode. ":memory:" is accepted for tests.
//
// The pool is capped at one connection: SQLite allows a single writer, and an
// in-memory database exists only on the connection that created it.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create dirs: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	return conn, nil
}

type database struct {
	db *sql.DB
}

func (d database) Driver() string                 { return "sqlite" }
func (d database) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }
func (d database) Close()                         { d.db.Close() }

// NewStore wires every repository to db. The schema must already be migrated.
func NewStore(db *sql.DB) *repositories.Store {
	return &repositories.Store{
		DB:      database{db: db},
		Batches: &BatchRepository{DB: db},
		Configs: &UserConfigRepository{DB: db},
		Recipes: &RecipeRepository{DB: db},
		Notes:   &NoteRepository{DB: db},
		Users:   &UserRepository{DB: db},
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
