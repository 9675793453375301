package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/repositories"
)

type RecipeRepository struct {
	DB *sql.DB
}

func (r *RecipeRepository) List(ctx context.Context, userID string) ([]*models.RecipeEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, name, type, COALESCE(ingredients, ''), COALESCE(directions, ''), created_at
		 FROM recipes WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []*models.RecipeEntry
	for rows.Next() {
		var (
			e         models.RecipeEntry
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.Type, &e.Ingredients, &e.Directions, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTimestamp(createdAt)
		recipes = append(recipes, &e)
	}
	return recipes, rows.Err()
}

func (r *RecipeRepository) Upsert(ctx context.Context, userID string, e *models.RecipeEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO recipes (id, user_id, name, type, ingredients, directions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, type = excluded.type,
		        ingredients = excluded.ingredients, directions = excluded.directions
		 WHERE recipes.user_id = excluded.user_id`,
		e.ID, userID, e.Name, e.Type, e.Ingredients, e.Directions, timestamp(e.CreatedAt))
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *RecipeRepository) Delete(ctx context.Context, userID, id string) error {
	return deleteOwned(ctx, r.DB, "recipes", userID, id)
}

type NoteRepository struct {
	DB *sql.DB
}

func (r *NoteRepository) List(ctx context.Context, userID string) ([]*models.NoteEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, name, COALESCE(notes, ''), created_at
		 FROM notes WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*models.NoteEntry
	for rows.Next() {
		var (
			n         models.NoteEntry
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Name, &n.Notes, &createdAt); err != nil {
			return nil, err
		}
		n.CreatedAt = parseTimestamp(createdAt)
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

func (r *NoteRepository) Upsert(ctx context.Context, userID string, n *models.NoteEntry) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO notes (id, user_id, name, notes, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, notes = excluded.notes
		 WHERE notes.user_id = excluded.user_id`,
		n.ID, userID, n.Name, n.Notes, timestamp(n.CreatedAt))
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *NoteRepository) Delete(ctx context.Context, userID, id string) error {
	return deleteOwned(ctx, r.DB, "notes", userID, id)
}

func deleteOwned(ctx context.Context, db *sql.DB, table, userID, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
