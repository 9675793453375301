package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mushroomlog/mushroomlog/internal/services"
	"github.com/mushroomlog/mushroomlog/pkg/utils"
)

type SetupHandler struct{}

func NewSetupHandler() *SetupHandler {
	return &SetupHandler{}
}

// TestConnection handles POST /api/setup/test. Failures are reported in the
// body with a 200 so the client can show the driver's message.
func (h *SetupHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req services.ConnectionParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	utils.JSON(w, http.StatusOK, services.TestConnection(r.Context(), req))
}
