package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/services"
	"github.com/mushroomlog/mushroomlog/pkg/utils"
)

type AssistantHandler struct {
	Service *services.AssistantService
	logger  *zap.Logger
}

func NewAssistantHandler(s *services.AssistantService, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{Service: s, logger: logger}
}

// Ask handles POST /api/assistant with {"question": ...}.
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	answer, err := h.Service.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, h.logger, err, "reach the assistant, please try again later")
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"answer": answer})
}
