package models

import "time"

type RecipeEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Ingredients string    `json:"ingredients,omitempty"`
	Directions  string    `json:"directions"`
	CreatedAt   time.Time `json:"created_at"`
}

type NoteEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}
