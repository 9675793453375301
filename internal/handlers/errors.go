package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/middleware"
	"github.com/mushroomlog/mushroomlog/internal/services"
)

// statusFor maps service errors to HTTP status codes; anything unknown is a 500.
func statusFor(err error) int {
	var totpErr *services.TOTPError
	switch {
	case errors.Is(err, services.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.As(err, &totpErr):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, services.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError answers with the mapped status. Client errors carry the service
// message; server and upstream errors are logged and answered generically.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error, action string) {
	status := statusFor(err)
	switch {
	case status == http.StatusNotFound:
		http.Error(w, "Not found", status)
	case status < 500:
		http.Error(w, strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": "), status)
	case status == http.StatusServiceUnavailable:
		http.Error(w, err.Error(), status)
	default:
		logger.Error("request failed", zap.String("action", action), zap.Error(err))
		http.Error(w, "Failed to "+action, status)
	}
}

// userID reads the authenticated user; the auth middleware guarantees it on /api routes.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}
