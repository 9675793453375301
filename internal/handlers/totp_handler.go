package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/services"
	"github.com/mushroomlog/mushroomlog/pkg/utils"
)

type TOTPHandler struct {
	TOTPService *services.TOTPService
	Users       *services.UserService
	logger      *zap.Logger
}

func NewTOTPHandler(totpService *services.TOTPService, users *services.UserService, logger *zap.Logger) *TOTPHandler {
	return &TOTPHandler{TOTPService: totpService, Users: users, logger: logger}
}

// SetupTOTP initiates 2FA setup - returns secret and QR code
func (h *TOTPHandler) SetupTOTP(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	user, err := h.Users.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "load user")
		return
	}

	response, err := h.TOTPService.GenerateSetup(r.Context(), user)
	if err != nil {
		writeError(w, h.logger, err, "generate 2FA setup")
		return
	}
	utils.JSON(w, http.StatusOK, response)
}

func decodeCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req models.TOTPCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return "", false
	}
	if req.Code == "" {
		http.Error(w, "Verification code is required", http.StatusBadRequest)
		return "", false
	}
	return req.Code, true
}

// EnableTOTP verifies the code and enables 2FA
func (h *TOTPHandler) EnableTOTP(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	code, ok := decodeCode(w, r)
	if !ok {
		return
	}
	if err := h.TOTPService.Enable(r.Context(), id, code); err != nil {
		writeError(w, h.logger, err, "enable 2FA")
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "2FA enabled successfully"})
}

// DisableTOTP turns off 2FA after verifying a code
func (h *TOTPHandler) DisableTOTP(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	code, ok := decodeCode(w, r)
	if !ok {
		return
	}
	if err := h.TOTPService.Disable(r.Context(), id, code); err != nil {
		writeError(w, h.logger, err, "disable 2FA")
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "2FA disabled successfully"})
}
