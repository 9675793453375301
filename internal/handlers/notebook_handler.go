package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/services"
	"github.com/mushroomlog/mushroomlog/pkg/utils"
)

type NotebookHandler struct {
	Service *services.NotebookService
	logger  *zap.Logger
}

func NewNotebookHandler(s *services.NotebookService, logger *zap.Logger) *NotebookHandler {
	return &NotebookHandler{Service: s, logger: logger}
}

func (h *NotebookHandler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	recipes, err := h.Service.ListRecipes(r.Context(), uid)
	if err != nil {
		writeError(w, h.logger, err, "list recipes")
		return
	}
	utils.JSON(w, http.StatusOK, recipes)
}

// SaveRecipe handles PUT /api/recipes and PUT /api/recipes/{id}.
func (h *NotebookHandler) SaveRecipe(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var recipe models.RecipeEntry
	if err := json.NewDecoder(r.Body).Decode(&recipe); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if id := mux.Vars(r)["id"]; id != "" {
		recipe.ID = id
	}
	if err := h.Service.SaveRecipe(r.Context(), uid, &recipe); err != nil {
		writeError(w, h.logger, err, "save recipe")
		return
	}
	utils.JSON(w, http.StatusOK, &recipe)
}

func (h *NotebookHandler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteRecipe(r.Context(), uid, mux.Vars(r)["id"]); err != nil {
		writeError(w, h.logger, err, "delete recipe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotebookHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	notes, err := h.Service.ListNotes(r.Context(), uid)
	if err != nil {
		writeError(w, h.logger, err, "list notes")
		return
	}
	utils.JSON(w, http.StatusOK, notes)
}

// SaveNote handles PUT /api/notes and PUT /api/notes/{id}.
func (h *NotebookHandler) SaveNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var note models.NoteEntry
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if id := mux.Vars(r)["id"]; id != "" {
		note.ID = id
	}
	if err := h.Service.SaveNote(r.Context(), uid, &note); err != nil {
		writeError(w, h.logger, err, "save note")
		return
	}
	utils.JSON(w, http.StatusOK, &note)
}

func (h *NotebookHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteNote(r.Context(), uid, mux.Vars(r)["id"]); err != nil {
		writeError(w, h.logger, err, "delete note")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
