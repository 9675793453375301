package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/services"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", fmt.Errorf("%w: quantity must be positive", services.ErrValidation), 400, "quantity must be positive\n"},
		{"not found", fmt.Errorf("batch x: %w", services.ErrNotFound), 404, "Not found\n"},
		{"rate limited", services.ErrTooManyAttempts, 429, services.ErrTooManyAttempts.Message + "\n"},
		{"bad code", services.ErrInvalidTOTPCode, 400, "invalid verification code\n"},
		{"credentials", services.ErrInvalidCredentials, 401, services.ErrInvalidCredentials.Error() + "\n"},
		{"taken", services.ErrEmailTaken, 409, services.ErrEmailTaken.Error() + "\n"},
		{"unavailable", fmt.Errorf("%w: assistant is not configured", services.ErrUnavailable), 503, "service unavailable: assistant is not configured\n"},
		{"upstream", fmt.Errorf("%w: quota", services.ErrUpstream), 502, "Failed to ask\n"},
		{"internal", errors.New("disk on fire"), 500, "Failed to ask\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, zap.NewNop(), tt.err, "ask")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestUserIDMissing(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := userID(rec, httptest.NewRequest(http.MethodGet, "/api/batches", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
