package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/services"
	"github.com/mushroomlog/mushroomlog/pkg/utils"
)

type AuthHandler struct {
	Service *services.UserService
	logger  *zap.Logger
}

func NewAuthHandler(s *services.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{Service: s, logger: logger}
}

// Signup handles user registration
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	authResp, err := h.Service.Signup(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err, "sign up")
		return
	}
	utils.JSON(w, http.StatusCreated, authResp)
}

// Login handles user authentication. Users with 2FA get a temp token for step two.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err, "log in")
		return
	}
	if res.Step1 != nil {
		utils.JSON(w, http.StatusOK, res.Step1)
		return
	}
	utils.JSON(w, http.StatusOK, res.Auth)
}

// Verify2FA completes a login with the temp token and a TOTP code.
func (h *AuthHandler) Verify2FA(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TempToken == "" || req.Code == "" {
		http.Error(w, "temp_token and code are required", http.StatusBadRequest)
		return
	}

	authResp, err := h.Service.CompleteLogin(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err, "verify code")
		return
	}
	utils.JSON(w, http.StatusOK, authResp)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	user, err := h.Service.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "load user")
		return
	}
	utils.JSON(w, http.StatusOK, user)
}
