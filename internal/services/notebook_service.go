package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/repositories"
)

// NotebookService manages recipes and free-form notes. Neither relates to batches.
type NotebookService struct {
	Recipes repositories.RecipeStore
	Notes   repositories.NoteStore
}

func NewNotebookService(recipes repositories.RecipeStore, notes repositories.NoteStore) *NotebookService {
	return &NotebookService{Recipes: recipes, Notes: notes}
}

func (s *NotebookService) ListRecipes(ctx context.Context, userID string) ([]*models.RecipeEntry, error) {
	recipes, err := s.Recipes.List(ctx, userID)
	if recipes == nil {
		recipes = []*models.RecipeEntry{}
	}
	return recipes, err
}

// SaveRecipe inserts or replaces a recipe by id, generating the id when empty.
func (s *NotebookService) SaveRecipe(ctx context.Context, userID string, r *models.RecipeEntry) error {
	if strings.TrimSpace(r.Name) == "" {
		return invalid("recipe name is required")
	}
	if strings.TrimSpace(r.Type) == "" {
		return invalid("recipe type is required")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.UserID = userID
	return s.Recipes.Upsert(ctx, userID, r)
}

func (s *NotebookService) DeleteRecipe(ctx context.Context, userID, id string) error {
	return s.Recipes.Delete(ctx, userID, id)
}

func (s *NotebookService) ListNotes(ctx context.Context, userID string) ([]*models.NoteEntry, error) {
	notes, err := s.Notes.List(ctx, userID)
	if notes == nil {
		notes = []*models.NoteEntry{}
	}
	return notes, err
}

func (s *NotebookService) SaveNote(ctx context.Context, userID string, n *models.NoteEntry) error {
	if strings.TrimSpace(n.Name) == "" {
		return invalid("note name is required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.UserID = userID
	return s.Notes.Upsert(ctx, userID, n)
}

func (s *NotebookService) DeleteNote(ctx context.Context, userID, id string) error {
	return s.Notes.Delete(ctx, userID, id)
}
