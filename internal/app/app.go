// Package app wires configuration into a running service graph.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/auth"
	"github.com/mushroomlog/mushroomlog/internal/blob"
	"github.com/mushroomlog/mushroomlog/internal/cache"
	"github.com/mushroomlog/mushroomlog/internal/config"
	"github.com/mushroomlog/mushroomlog/internal/db"
	"github.com/mushroomlog/mushroomlog/internal/handlers"
	"github.com/mushroomlog/mushroomlog/internal/health"
	h "github.com/mushroomlog/mushroomlog/internal/http"
	"github.com/mushroomlog/mushroomlog/internal/middleware"
	"github.com/mushroomlog/mushroomlog/internal/monitoring"
	"github.com/mushroomlog/mushroomlog/internal/repositories"
	"github.com/mushroomlog/mushroomlog/internal/services"
)

// Services are the domain services shared by the HTTP server and the CLI.
type Services struct {
	Configs   *services.ConfigService
	Batches   *services.BatchService
	Images    *services.ImageService
	Stats     *services.StatsService
	Reports   *services.ReportService
	Notebook  *services.NotebookService
	Assistant *services.AssistantService
	TOTP      *services.TOTPService
	Users     *services.UserService
}

// App owns every long-lived resource.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    *repositories.Store
	Cache    *cache.Cache
	Blob     blob.Store
	URLs     blob.URLBuilder
	Hub      *monitoring.Hub
	JWT      *auth.JWTManager
	Services Services
	Health   *health.HealthChecker
}

// New opens the database (running migrations), Redis when enabled, the blob
// store and the assistant client. Redis and the assistant are optional: a
// failure there is logged and the feature degrades.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Store: store}

	if cfg.Redis.Enabled {
		c, err := cache.New(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
			a.Cache = c
		}
	}

	a.Blob, err = blob.Open(ctx, blob.Config{
		Driver: blob.Driver(cfg.Storage.Driver),
		Bucket: cfg.Storage.Bucket,
		FSRoot: cfg.Storage.FSRoot,
		S3: blob.S3Config{
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			PathStyle:       cfg.Storage.S3.PathStyle,
		},
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open image storage: %w", err)
	}
	a.URLs = blob.URLBuilder{Base: cfg.Storage.PublicURL, Bucket: cfg.Storage.Bucket}

	var generator services.TextGenerator
	if cfg.Assistant.APIKey != "" {
		generator, err = services.NewGenAIGenerator(ctx, cfg.Assistant.APIKey)
		if err != nil {
			logger.Warn("assistant disabled", zap.Error(err))
			generator = nil
		}
	}

	a.Hub = monitoring.NewHub(logger)
	a.JWT = auth.NewJWTManager(auth.JWTSettings{
		Secret:          cfg.JWT.Secret,
		ExpirationHours: cfg.JWT.ExpirationHours,
		Issuer:          cfg.JWT.Issuer,
	})

	s := &a.Services
	s.Configs = services.NewConfigService(store.Configs, store.Batches, a.Cache, config.DefaultUserConfigs, a.Hub, logger)
	s.Batches = services.NewBatchService(store.Batches, s.Configs, a.Cache, a.Hub, logger)
	s.Images = services.NewImageService(a.Blob, a.URLs, s.Batches, logger)
	s.Stats = services.NewStatsService(s.Batches, s.Configs, a.Cache)
	s.Reports = services.NewReportService(s.Batches, s.Stats)
	s.Notebook = services.NewNotebookService(store.Recipes, store.Notes)
	s.Assistant = services.NewAssistantService(generator, cfg.Assistant.Model, logger)
	s.TOTP = services.NewTOTPService(store.Users, a.Cache)
	s.Users = services.NewUserService(store.Users, a.JWT, s.TOTP)

	diskPath := "."
	if cfg.Storage.Driver == string(blob.DriverFilesystem) {
		diskPath = cfg.Storage.FSRoot
	}
	a.Health = health.NewHealthChecker(store.DB, a.Cache, a.Blob, diskPath)
	return a, nil
}

// ImagePrefix is the local path images are served under, or "" when the
// public URL points elsewhere (a CDN in front of the bucket).
func (a *App) ImagePrefix() string {
	base := a.Config.Storage.PublicURL
	if !strings.HasPrefix(base, "/") || a.Blob.Driver() == blob.DriverS3 {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + a.Config.Storage.Bucket
}

// Handler builds the router and the middleware chain around it.
func (a *App) Handler() http.Handler {
	logger := a.Logger
	s := a.Services
	router := h.NewRouter(h.Handlers{
		Auth:       handlers.NewAuthHandler(s.Users, logger),
		TOTP:       handlers.NewTOTPHandler(s.TOTP, s.Users, logger),
		Batches:    handlers.NewBatchHandler(s.Batches, s.Reports, logger),
		Configs:    handlers.NewConfigHandler(s.Configs, logger),
		Notebook:   handlers.NewNotebookHandler(s.Notebook, logger),
		Reports:    handlers.NewReportHandler(s.Reports, s.Stats, logger),
		Images:     handlers.NewImageHandler(s.Images, logger),
		Assistant:  handlers.NewAssistantHandler(s.Assistant, logger),
		Setup:      handlers.NewSetupHandler(),
		Monitoring: handlers.NewMonitoringHandler(a.Hub),
		Health:     handlers.NewHealthHandler(a.Health),
	}, middleware.NewAuthMiddleware(a.JWT, a.Store.Users), a.ImagePrefix())

	return h.Wrap(router,
		middleware.NewCORS(a.Config),
		middleware.PanicRecovery(logger),
		middleware.RequestLogger(logger),
	)
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.Store != nil {
		a.Store.DB.Close()
	}
}
