package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/config"
	"github.com/mushroomlog/mushroomlog/internal/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.CorsAllowedOrigins = []string{"http://localhost:5173"}
	cfg.Server.CorsAllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.Server.CorsAllowedHeaders = []string{"Authorization", "Content-Type"}
	cfg.Database.Driver = "sqlite"
	cfg.Database.SQLitePath = ":memory:"
	cfg.JWT.Secret = "app-test-secret"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "mushroomlog"
	cfg.Storage.Driver = "memory"
	cfg.Storage.Bucket = "grow_images"
	cfg.Storage.PublicURL = "/images"
	cfg.Assistant.Model = "test-model"
	return cfg
}

type client struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func newClient(t *testing.T) *client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	a, err := New(ctx, testConfig(), zap.NewNop())
	require.NoError(t, err)
	go a.Hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		a.Close()
	})
	return &client{t: t, handler: a.Handler()}
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func (c *client) signup() {
	c.t.Helper()
	rec := c.do("POST", "/auth/signup", models.SignupRequest{
		Name: "Grower", Email: "grower@example.com", Password: "spores-and-more",
	})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp models.AuthResponse
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(c.t, resp.Token)
	c.token = resp.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	c := newClient(t)

	assert.Equal(t, http.StatusOK, c.do("GET", "/health", nil).Code)
	ready := c.do("GET", "/health/ready", nil)
	assert.Equal(t, http.StatusOK, ready.Code)
	assert.Contains(t, ready.Body.String(), `"driver":"sqlite"`)
	assert.Equal(t, http.StatusOK, c.do("GET", "/metrics", nil).Code)
}

func TestAPIRequiresToken(t *testing.T) {
	c := newClient(t)

	assert.Equal(t, http.StatusUnauthorized, c.do("GET", "/api/batches", nil).Code)
	c.token = "not-a-jwt"
	assert.Equal(t, http.StatusUnauthorized, c.do("GET", "/api/batches", nil).Code)
}

func TestSignupLoginAndMe(t *testing.T) {
	c := newClient(t)
	c.signup()

	dup := c.do("POST", "/auth/signup", models.SignupRequest{
		Name: "Again", Email: "GROWER@example.com", Password: "spores-and-more",
	})
	assert.Equal(t, http.StatusConflict, dup.Code)

	bad := c.do("POST", "/auth/login", models.LoginRequest{Email: "grower@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	ok := c.do("POST", "/auth/login", models.LoginRequest{Email: "grower@example.com", Password: "spores-and-more"})
	require.Equal(t, http.StatusOK, ok.Code)
	assert.NotEmpty(t, decode[models.AuthResponse](t, ok).Token)

	me := c.do("GET", "/api/me", nil)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "grower@example.com")
}

func TestBatchLifecycle(t *testing.T) {
	c := newClient(t)
	c.signup()

	rec := c.do("POST", "/api/batches", models.CreateBatchRequest{
		CreatedDate:   "2024-01-15",
		Species:       "Oyster Blue",
		OperationType: "Agar work",
		Quantity:      2,
		Unit:          models.UnitPlate,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[[]models.Batch](t, rec)
	require.Len(t, created, 2)
	assert.Equal(t, "240115-OB-01", created[0].DisplayID)
	assert.Equal(t, "240115-OB-02", created[1].DisplayID)

	list := decode[[]models.Batch](t, c.do("GET", "/api/batches", nil))
	assert.Len(t, list, 2)

	next := c.do("GET", "/api/display-ids/next?species=Oyster%20Blue&date=2024-01-15&n=1", nil)
	require.Equal(t, http.StatusOK, next.Code)
	assert.JSONEq(t, `{"displayIds":["240115-OB-03"]}`, next.Body.String())

	invalid := c.do("POST", "/api/batches", models.CreateBatchRequest{
		CreatedDate: "2024-01-15", Species: "Truffle", OperationType: "Agar work", Quantity: 1,
	})
	assert.Equal(t, http.StatusBadRequest, invalid.Code)
	assert.NotContains(t, invalid.Body.String(), "validation failed")

	missing := c.do("GET", "/api/batches/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, "Not found\n", missing.Body.String())

	del := c.do("DELETE", "/api/batches/"+created[1].ID, nil)
	assert.Equal(t, http.StatusNoContent, del.Code)
	assert.Len(t, decode[[]models.Batch](t, c.do("GET", "/api/batches", nil)), 1)

	csv := c.do("GET", "/api/export/csv", nil)
	require.Equal(t, http.StatusOK, csv.Code)
	assert.Contains(t, csv.Header().Get("Content-Disposition"), "mushroom_logs_")
	assert.Contains(t, csv.Body.String(), `240115-OB-01,2024-01-15,"Oyster Blue","Agar work",1,`)
}

func TestConfigsRoundTrip(t *testing.T) {
	c := newClient(t)
	c.signup()

	cfg := decode[models.UserConfigs](t, c.do("GET", "/api/configs", nil))
	require.NotEmpty(t, cfg.Species)
	cfg.Language = "en"

	assert.Equal(t, http.StatusOK, c.do("PUT", "/api/configs", cfg).Code)
	again := decode[models.UserConfigs](t, c.do("GET", "/api/configs", nil))
	assert.Equal(t, "en", again.Language)

	cfg.Language = "fr"
	assert.Equal(t, http.StatusBadRequest, c.do("PUT", "/api/configs", cfg).Code)
}

func TestImageUploadAndServe(t *testing.T) {
	c := newClient(t)
	c.signup()

	created := decode[[]models.Batch](t, c.do("POST", "/api/batches", models.CreateBatchRequest{
		CreatedDate: "2024-01-15", Species: "Lions' Mane", OperationType: "Agar work", Quantity: 1,
	}))
	require.Len(t, created, 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "plate.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/batches/"+created[0].ID+"/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var up struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	require.True(t, strings.HasPrefix(up.URL, "/images/grow_images/"), up.URL)

	c.token = ""
	img := c.do("GET", up.URL, nil)
	require.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "fake-png-bytes", img.Body.String())
	assert.Equal(t, "image/png", img.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, c.do("GET", "/images/grow_images/nobody/missing.png", nil).Code)
}

func TestAssistantDisabledWithoutKey(t *testing.T) {
	c := newClient(t)
	c.signup()

	rec := c.do("POST", "/api/assistant", map[string]string{"question": "Why is my agar green?"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
