// Package db opens the configured database backend.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/config"
	"github.com/mushroomlog/mushroomlog/internal/database"
	"github.com/mushroomlog/mushroomlog/internal/repositories"
	"github.com/mushroomlog/mushroomlog/internal/repositories/sqlite"
)

// Connect opens the backend named by cfg.Database.Driver. The schema is not
// touched; run the returned migrator for that.
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repositories.Store, *database.Migrator, error) {
	switch cfg.Database.Driver {
	case "postgres":
		poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("invalid postgres settings: %w", err)
		}
		poolCfg.MaxConns = 10
		poolCfg.MaxConnIdleTime = 5 * time.Minute

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect failed: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("db ping failed: %w", err)
		}
		logger.Info("connected to postgres",
			zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))
		return repositories.NewPostgresStore(pool), database.NewMigrator(pool, logger), nil

	case "sqlite":
		conn, err := sqlite.OpenDB(cfg.Database.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("opened sqlite database", zap.String("path", cfg.Database.SQLitePath))
		return sqlite.NewStore(conn), database.NewSQLiteMigrator(conn, logger), nil
	}
	return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

// Open connects and applies pending migrations.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repositories.Store, error) {
	store, migrator, err := Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if _, err := migrator.RunMigrations(ctx); err != nil {
		store.DB.Close()
		return nil, err
	}
	return store, nil
}
