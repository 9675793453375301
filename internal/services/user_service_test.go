package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mushroomlog/mushroomlog/internal/auth"
	"github.com/mushroomlog/mushroomlog/internal/models"
)

func newUserService(t *testing.T) *UserService {
	env := newTestEnv(t)
	jwt := auth.NewJWTManager(auth.JWTSettings{Secret: "test-secret", ExpirationHours: 1, Issuer: "test"})
	return NewUserService(env.store.Users, jwt, NewTOTPService(env.store.Users, nil))
}

func TestSignupAndLogin(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, &models.SignupRequest{Name: "Grower", Email: " Grower@Example.com ", Password: "spores123"})
	require.NoError(t, err)
	assert.Equal(t, "grower@example.com", res.User.Email)
	assert.NotEmpty(t, res.Token)

	claims, err := svc.JWTManager.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	_, err = svc.Signup(ctx, &models.SignupRequest{Name: "Again", Email: "grower@example.com", Password: "spores123"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	login, err := svc.Login(ctx, &models.LoginRequest{Email: "GROWER@example.com", Password: "spores123"})
	require.NoError(t, err)
	require.NotNil(t, login.Auth)
	assert.Nil(t, login.Step1)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "grower@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "spores123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignupValidation(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	for name, req := range map[string]models.SignupRequest{
		"missing name":   {Email: "a@example.com", Password: "longenough"},
		"bad email":      {Name: "A", Email: "not-an-email", Password: "longenough"},
		"short password": {Name: "A", Email: "a@example.com", Password: "short"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Signup(ctx, &req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestTOTPLoginFlow(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, &models.SignupRequest{Name: "Grower", Email: "g@example.com", Password: "spores123"})
	require.NoError(t, err)
	user := res.User

	assert.ErrorIs(t, svc.TOTP.Enable(ctx, user.ID, "123456"), ErrNoTOTPSecret)

	setup, err := svc.TOTP.GenerateSetup(ctx, user)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(setup.QRCode, "data:image/png;base64,"))
	assert.Equal(t, "MushroomLog", setup.Issuer)

	assert.ErrorIs(t, svc.TOTP.Enable(ctx, user.ID, "not-a-code"), ErrInvalidTOTPCode)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.TOTP.Enable(ctx, user.ID, code))

	stored, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.TOTPEnabled)
	_, err = svc.TOTP.GenerateSetup(ctx, stored)
	assert.ErrorIs(t, err, ErrTOTPAlreadyEnabled)

	login, err := svc.Login(ctx, &models.LoginRequest{Email: "g@example.com", Password: "spores123"})
	require.NoError(t, err)
	require.NotNil(t, login.Step1)
	assert.Nil(t, login.Auth)
	assert.True(t, login.Step1.Requires2FA)

	_, err = svc.CompleteLogin(ctx, &models.TOTPVerifyRequest{TempToken: "garbage", Code: code})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := svc.CompleteLogin(ctx, &models.TOTPVerifyRequest{TempToken: login.Step1.TempToken, Code: code})
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)

	require.NoError(t, svc.TOTP.Disable(ctx, user.ID, code))
	assert.ErrorIs(t, svc.TOTP.Verify(ctx, user.ID, code), ErrTOTPNotEnabled)
}
