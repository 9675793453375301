package health

import (
	"context"
	"time"

	"github.com/mushroomlog/mushroomlog/internal/blob"
	"github.com/mushroomlog/mushroomlog/internal/cache"
	"github.com/mushroomlog/mushroomlog/internal/monitoring"
	"github.com/mushroomlog/mushroomlog/internal/repositories"
)

type HealthChecker struct {
	db       repositories.Database
	cache    *cache.Cache
	store    blob.Store
	diskPath string
	started  time.Time
}

type HealthStatus struct {
	Status   string           `json:"status"`
	Database *ComponentHealth `json:"database,omitempty"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	Driver       string `json:"driver,omitempty"`
	ResponseTime int64  `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
}

type DetailedStatus struct {
	Status   string               `json:"status"`
	Uptime   string               `json:"uptime"`
	Database ComponentHealth      `json:"database"`
	Redis    ComponentHealth      `json:"redis"`
	Storage  ComponentHealth      `json:"storage"`
	Host     monitoring.HostStats `json:"host"`
}

// NewHealthChecker accepts a nil cache (Redis disabled). diskPath is the
// directory whose filesystem is reported in detailed checks.
func NewHealthChecker(db repositories.Database, c *cache.Cache, store blob.Store, diskPath string) *HealthChecker {
	return &HealthChecker{db: db, cache: c, store: store, diskPath: diskPath, started: time.Now()}
}

// CheckBasic is the liveness probe: the process answers.
func (h *HealthChecker) CheckBasic() HealthStatus {
	return HealthStatus{Status: "healthy"}
}

// CheckReady pings the database.
func (h *HealthChecker) CheckReady(ctx context.Context) HealthStatus {
	db := h.checkDatabase(ctx)
	status := "healthy"
	if db.Status != "healthy" {
		status = "unhealthy"
	}
	return HealthStatus{Status: status, Database: &db}
}

// CheckDetailed adds Redis, object storage and host stats. Redis being
// disabled degrades nothing; storage failing marks the service degraded.
func (h *HealthChecker) CheckDetailed(ctx context.Context) DetailedStatus {
	out := DetailedStatus{
		Status:   "healthy",
		Uptime:   time.Since(h.started).Round(time.Second).String(),
		Database: h.checkDatabase(ctx),
		Redis:    h.checkRedis(ctx),
		Storage:  h.checkStorage(ctx),
		Host:     monitoring.CollectHostStats(ctx, h.diskPath),
	}
	switch {
	case out.Database.Status != "healthy":
		out.Status = "unhealthy"
	case out.Storage.Status != "healthy" || out.Redis.Status == "unhealthy":
		out.Status = "degraded"
	}
	return out
}

func (h *HealthChecker) checkDatabase(ctx context.Context) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	res := ComponentHealth{
		Status:       "healthy",
		Driver:       h.db.Driver(),
		ResponseTime: time.Since(start).Milliseconds(),
	}
	if err != nil {
		res.Status = "unhealthy"
		res.Error = err.Error()
	}
	return res
}

func (h *HealthChecker) checkRedis(ctx context.Context) ComponentHealth {
	if !h.cache.Enabled() {
		return ComponentHealth{Status: "disabled"}
	}
	start := time.Now()
	ok := h.cache.IsHealthy(ctx)
	res := ComponentHealth{Status: "healthy", ResponseTime: time.Since(start).Milliseconds()}
	if !ok {
		res.Status = "unhealthy"
	}
	return res
}

func (h *HealthChecker) checkStorage(ctx context.Context) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := h.store.Ping(ctx)
	res := ComponentHealth{
		Status:       "healthy",
		Driver:       string(h.store.Driver()),
		ResponseTime: time.Since(start).Milliseconds(),
	}
	if err != nil {
		res.Status = "unhealthy"
		res.Error = err.Error()
	}
	return res
}
