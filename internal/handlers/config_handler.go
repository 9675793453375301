package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/services"
	"github.com/mushroomlog/mushroomlog/pkg/utils"
)

type ConfigHandler struct {
	Service *services.ConfigService
	logger  *zap.Logger
}

func NewConfigHandler(s *services.ConfigService, logger *zap.Logger) *ConfigHandler {
	return &ConfigHandler{Service: s, logger: logger}
}

func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	cfg, err := h.Service.Get(r.Context(), uid)
	if err != nil {
		writeError(w, h.logger, err, "load configs")
		return
	}
	utils.JSON(w, http.StatusOK, cfg)
}

// Save replaces the whole configuration and returns it as stored.
func (h *ConfigHandler) Save(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var cfg models.UserConfigs
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.Service.Save(r.Context(), uid, &cfg); err != nil {
		writeError(w, h.logger, err, "save configs")
		return
	}
	utils.JSON(w, http.StatusOK, &cfg)
}
