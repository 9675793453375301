package repositories

import (
	"context"
	"errors"

	"github.com/mushroomlog/mushroomlog/internal/displayid"
	"github.com/mushroomlog/mushroomlog/internal/models"
)

// ErrNotFound is returned when a row does not exist for the requesting user.
var ErrNotFound = errors.New("not found")

// BatchWrite is one logically atomic change set. Backends apply it in a
// single transaction.
//
// When AllocatePrefix is set, every batch in Insert and then Update whose
// DisplayID is empty receives the next free code under that prefix. The
// lookup and the writes share the transaction and are serialized per user.
//
// Configs are upserted in the same transaction, so a taxonomy rename and the
// batch rows it rewrites commit together.
type BatchWrite struct {
	AllocatePrefix string
	Insert         []*models.Batch
	Update         []*models.Batch
	Delete         []string
	Configs        []models.ConfigRow
}

// Empty reports whether the write has nothing to do.
func (w BatchWrite) Empty() bool {
	return len(w.Insert) == 0 && len(w.Update) == 0 && len(w.Delete) == 0 && len(w.Configs) == 0
}

// AssignDisplayIDs fills empty codes in w from existing, returning how many were assigned.
func AssignDisplayIDs(w *BatchWrite, existing []string) int {
	var pending []*models.Batch
	for _, b := range w.Insert {
		if b.DisplayID == "" {
			pending = append(pending, b)
		}
	}
	for _, b := range w.Update {
		if b.DisplayID == "" {
			pending = append(pending, b)
		}
	}
	if len(pending) == 0 {
		return 0
	}
	codes := displayid.Allocate(w.AllocatePrefix, existing, len(pending))
	for i, b := range pending {
		b.DisplayID = codes[i]
	}
	return len(pending)
}

type BatchStore interface {
	List(ctx context.Context, userID string) ([]*models.Batch, error)
	Get(ctx context.Context, userID, id string) (*models.Batch, error)
	GetMany(ctx context.Context, userID string, ids []string) ([]*models.Batch, error)
	ListBySpecies(ctx context.Context, userID, species string) ([]*models.Batch, error)
	DisplayIDsWithPrefix(ctx context.Context, userID, prefix string) ([]string, error)
	Apply(ctx context.Context, userID string, w BatchWrite) error
}

type ConfigStore interface {
	Get(ctx context.Context, userID string) ([]models.ConfigRow, error)
	Save(ctx context.Context, userID string, rows []models.ConfigRow) error
}

type RecipeStore interface {
	List(ctx context.Context, userID string) ([]*models.RecipeEntry, error)
	Upsert(ctx context.Context, userID string, r *models.RecipeEntry) error
	Delete(ctx context.Context, userID, id string) error
}

type NoteStore interface {
	List(ctx context.Context, userID string) ([]*models.NoteEntry, error)
	Upsert(ctx context.Context, userID string, n *models.NoteEntry) error
	Delete(ctx context.Context, userID, id string) error
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetTOTPSecret(ctx context.Context, id, secret string) error
	SetTOTPEnabled(ctx context.Context, id string, enabled bool) error
}

// Database is the connection handle behind a Store.
type Database interface {
	Driver() string
	Ping(ctx context.Context) error
	Close()
}

// Store bundles the repositories of one backend. It is constructed once and
// passed to the services that need it.
type Store struct {
	DB      Database
	Batches BatchStore
	Configs ConfigStore
	Recipes RecipeStore
	Notes   NoteStore
	Users   UserStore
}
