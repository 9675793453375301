package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// migrationStore is the dialect specific half of the migrator.
type migrationStore interface {
	dialect() string
	ensureTable(ctx context.Context) error
	applied(ctx context.Context) (map[string]bool, error)
	// apply runs the migration body and records filename in one transaction.
	apply(ctx context.Context, filename, body string) error
}

// Migrator handles database schema migrations
type Migrator struct {
	store  migrationStore
	logger *zap.Logger
}

// MigrationStatus describes one migration file.
type MigrationStatus struct {
	Filename string `json:"filename"`
	Applied  bool   `json:"applied"`
}

// NewMigrator creates a migration runner for PostgreSQL
func NewMigrator(pool *pgxpool.Pool, logger *zap.Logger) *Migrator {
	return &Migrator{store: &pgMigrationStore{pool: pool}, logger: logger.Named("migrator")}
}

func (m *Migrator) files() ([]string, error) {
	dir := path.Join("migrations", m.store.dialect())
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Status lists every embedded migration and whether it has run.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.store.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	applied, err := m.store.applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	names, err := m.files()
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(names))
	for _, name := range names {
		out = append(out, MigrationStatus{Filename: name, Applied: applied[name]})
	}
	return out, nil
}

// RunMigrations executes all pending migrations in filename order.
// Each file runs in its own transaction together with its bookkeeping row.
func (m *Migrator) RunMigrations(ctx context.Context) (int, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}

	dir := path.Join("migrations", m.store.dialect())
	run := 0
	for _, s := range status {
		if s.Applied {
			m.logger.Debug("migration already applied", zap.String("file", s.Filename))
			continue
		}

		body, err := fs.ReadFile(migrationsFS, path.Join(dir, s.Filename))
		if err != nil {
			return run, fmt.Errorf("failed to read migration %s: %w", s.Filename, err)
		}

		m.logger.Info("running migration", zap.String("file", s.Filename))
		if err := m.store.apply(ctx, s.Filename, string(body)); err != nil {
			return run, fmt.Errorf("failed to run migration %s: %w", s.Filename, err)
		}
		run++
	}

	if run > 0 {
		m.logger.Info("migrations applied", zap.Int("count", run), zap.String("dialect", m.store.dialect()))
	} else {
		m.logger.Info("database is up to date", zap.String("dialect", m.store.dialect()))
	}
	return run, nil
}

type pgMigrationStore struct {
	pool *pgxpool.Pool
}

func (s *pgMigrationStore) dialect() string { return "postgres" }

func (s *pgMigrationStore) ensureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	return err
}

func (s *pgMigrationStore) applied(ctx context.Context) (map[string]bool, error) {
	applied := make(map[string]bool)

	rows, err := s.pool.Query(ctx, "SELECT filename FROM schema_migrations")
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

func (s *pgMigrationStore) apply(ctx context.Context, filename, body string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, body); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (filename) VALUES ($1) ON CONFLICT (filename) DO NOTHING`,
		filename); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
