package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/mushroomlog/mushroomlog/internal/cache"
	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/repositories"
)

const (
	totpIssuer        = "MushroomLog"
	maxFailedAttempts = 5
	rateLimitWindow   = 15 * time.Minute
)

type TOTPService struct {
	users repositories.UserStore
	cache *cache.Cache
}

// NewTOTPService counts failed attempts in Redis; without a cache no limit applies.
func NewTOTPService(users repositories.UserStore, c *cache.Cache) *TOTPService {
	return &TOTPService{users: users, cache: c}
}

func failedKey(userID string) string {
	return fmt.Sprintf("totp_failed:%s", userID)
}

// GenerateSetup creates a new TOTP secret and QR code for a user
func (s *TOTPService) GenerateSetup(ctx context.Context, user *models.User) (*models.TOTPSetupResponse, error) {
	if user.TOTPEnabled {
		return nil, ErrTOTPAlreadyEnabled
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	// stored but not enabled until a code is confirmed
	if err := s.users.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, err
	}

	qrImage, err := key.Image(200, 200)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qrImage); err != nil {
		return nil, err
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:      totpIssuer,
		AccountName: user.Email,
	}, nil
}

func (s *TOTPService) check(ctx context.Context, user *models.User, code string) error {
	if s.cache.Count(ctx, failedKey(user.ID)) >= maxFailedAttempts {
		return ErrTooManyAttempts
	}
	if !totp.Validate(code, user.TOTPSecret) {
		s.cache.Incr(ctx, failedKey(user.ID), rateLimitWindow)
		return ErrInvalidTOTPCode
	}
	s.cache.InvalidateKeys(ctx, failedKey(user.ID))
	return nil
}

// Enable confirms the pending secret with a code and turns 2FA on.
func (s *TOTPService) Enable(ctx context.Context, userID, code string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == "" {
		return ErrNoTOTPSecret
	}
	if err := s.check(ctx, user, code); err != nil {
		return err
	}
	return s.users.SetTOTPEnabled(ctx, userID, true)
}

// Verify validates a code during login.
func (s *TOTPService) Verify(ctx context.Context, userID, code string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled || user.TOTPSecret == "" {
		return ErrTOTPNotEnabled
	}
	return s.check(ctx, user, code)
}

// Disable turns 2FA off after a valid code and clears the secret.
func (s *TOTPService) Disable(ctx context.Context, userID, code string) error {
	if err := s.Verify(ctx, userID, code); err != nil {
		return err
	}
	if err := s.users.SetTOTPEnabled(ctx, userID, false); err != nil {
		return err
	}
	return s.users.SetTOTPSecret(ctx, userID, "")
}

// Custom errors
var (
	ErrTooManyAttempts    = &TOTPError{Message: "too many failed attempts, please try again later"}
	ErrNoTOTPSecret       = &TOTPError{Message: "2FA setup not initiated"}
	ErrInvalidTOTPCode    = &TOTPError{Message: "invalid verification code"}
	ErrTOTPNotEnabled     = &TOTPError{Message: "2FA is not enabled"}
	ErrTOTPAlreadyEnabled = &TOTPError{Message: "2FA is already enabled"}
)

type TOTPError struct {
	Message string
}

func (e *TOTPError) Error() string {
	return e.Message
}
