package services

import (
	"errors"
	"fmt"

	"github.com/mushroomlog/mushroomlog/internal/repositories"
)

var (
	// ErrValidation marks input the caller must fix.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound aliases the repository sentinel so handlers check one value.
	ErrNotFound = repositories.ErrNotFound
	// ErrUnavailable is returned when an optional collaborator is not configured.
	ErrUnavailable = errors.New("service unavailable")
	// ErrUpstream wraps failures of a remote dependency.
	ErrUpstream = errors.New("upstream request failed")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
