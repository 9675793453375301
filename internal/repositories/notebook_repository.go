package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mushroomlog/mushroomlog/internal/models"
)

type RecipeRepository struct {
	DB *pgxpool.Pool
}

func NewRecipeRepository(db *pgxpool.Pool) *RecipeRepository {
	return &RecipeRepository{DB: db}
}

func (r *RecipeRepository) List(ctx context.Context, userID string) ([]*models.RecipeEntry, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, user_id, name, type, COALESCE(ingredients, ''), COALESCE(directions, ''), created_at
		 FROM recipes WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []*models.RecipeEntry
	for rows.Next() {
		var e models.RecipeEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.Type, &e.Ingredients, &e.Directions, &e.CreatedAt); err != nil {
			return nil, err
		}
		recipes = append(recipes, &e)
	}
	return recipes, rows.Err()
}

func (r *RecipeRepository) Upsert(ctx context.Context, userID string, e *models.RecipeEntry) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO recipes (id, user_id, name, type, ingredients, directions)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET name = $3, type = $4, ingredients = $5, directions = $6
		 WHERE recipes.user_id = $2
		 RETURNING created_at`,
		e.ID, userID, e.Name, e.Type, e.Ingredients, e.Directions,
	).Scan(&e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *RecipeRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM recipes WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type NoteRepository struct {
	DB *pgxpool.Pool
}

func NewNoteRepository(db *pgxpool.Pool) *NoteRepository {
	return &NoteRepository{DB: db}
}

func (r *NoteRepository) List(ctx context.Context, userID string) ([]*models.NoteEntry, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, user_id, name, COALESCE(notes, ''), created_at
		 FROM notes WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*models.NoteEntry
	for rows.Next() {
		var n models.NoteEntry
		if err := rows.Scan(&n.ID, &n.UserID, &n.Name, &n.Notes, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

func (r *NoteRepository) Upsert(ctx context.Context, userID string, n *models.NoteEntry) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO notes (id, user_id, name, notes)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET name = $3, notes = $4
		 WHERE notes.user_id = $2
		 RETURNING created_at`,
		n.ID, userID, n.Name, n.Notes,
	).Scan(&n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *NoteRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM notes WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
