package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"plantarcli/internal/playback"
	"plantarcli/pkg/contracts"
	api "plantarcli/pkg/contracts/api/v1"
)

// ClientCounter reports connected push clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	store     *playback.Store
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates a health service. clients may be nil when the
// websocket endpoint is disabled.
func NewHealthService(version string, store *playback.Store, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		store:     store,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status. An empty dataset is healthy.
func (hs *HealthService) HealthCheck(ctx context.Context) api.HealthResponse {
	resp := api.HealthResponse{
		Status:     "healthy",
		Version:    hs.version,
		Uptime:     time.Since(hs.startTime).Round(time.Second).String(),
		Components: make(map[string]string, 2),
	}

	resp.Recordings = hs.store.Len()
	if resp.Recordings > 0 {
		resp.Components["dataset"] = "loaded"
	} else {
		resp.Components["dataset"] = "empty"
	}

	if hs.clients != nil {
		resp.Clients = hs.clients.ClientCount()
		resp.Components["websocket"] = "ok"
	} else {
		resp.Components["websocket"] = "disabled"
	}

	hs.logger.DebugContext(ctx, "health check",
		slog.String("status", resp.Status),
		slog.Int("recordings", resp.Recordings),
		slog.Int("clients", resp.Clients))
	return resp
}

// LivenessCheck returns runtime figures
func (hs *HealthService) LivenessCheck(ctx context.Context) api.LivenessResponse {
	return api.LivenessResponse{
		Status:        "alive",
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
	}
}

// Version returns build information
func (hs *HealthService) Version() contracts.VersionInfo {
	info := contracts.GetVersionInfo()
	if hs.version != "" {
		info.Version = hs.version
	}
	return info
}
