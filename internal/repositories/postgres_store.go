package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type pgDatabase struct {
	pool *pgxpool.Pool
}

func (d pgDatabase) Driver() string                 { return "postgres" }
func (d pgDatabase) Ping(ctx context.Context) error { return d.pool.Ping(ctx) }
func (d pgDatabase) Close()                         { d.pool.Close() }

// NewPostgresStore wires every repository to the same pool.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		DB:      pgDatabase{pool: pool},
		Batches: NewBatchRepository(pool),
		Configs: NewUserConfigRepository(pool),
		Recipes: NewRecipeRepository(pool),
		Notes:   NewNoteRepository(pool),
		Users:   NewUserRepository(pool),
	}
}
