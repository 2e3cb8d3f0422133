package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"plantarcli/internal/config"
	apierrors "plantarcli/internal/errors"
	"plantarcli/internal/files"
	"plantarcli/internal/gait"
	"plantarcli/internal/infrastructure"
	customMiddleware "plantarcli/internal/middleware"
	"plantarcli/internal/playback"
	"plantarcli/internal/services"
	handlers "plantarcli/internal/transport/http"
	ws "plantarcli/internal/websocket"
	"plantarcli/pkg/contracts"
	api "plantarcli/pkg/contracts/api/v1"
)

const AppName = "Plantar Pressure Gait Analysis"

// compressLevel is the gzip level for JSON and csv responses
const compressLevel = 5

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.AnalysisMetrics
	ErrorHandler  *apierrors.ErrorHandler
	Store         *playback.Store
	Player        *playback.Player
	Cache         *gait.Cache
	WebSocketHub  *ws.Hub
	Services      *ServiceContainer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Analysis *services.AnalysisService
	Playback *services.PlaybackService
	Health   *services.HealthService
}

// NewApplication loads the configuration, initializes the process logger and
// wires the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return New(cfg, logger)
}

// New wires every component from cfg
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.NewAnalysisMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Telemetry.Environment == "development"),
		Store:         playback.NewStore(logger),
		Player:        playback.NewPlayer(cfg.Playback.Speed),
		Cache:         gait.NewCache(cfg.Analysis.CacheSize),
	}
	if err := infrastructure.RegisterCacheStats(providers.Meter, a.Cache.Stats); err != nil {
		return nil, fmt.Errorf("failed to register cache metrics: %w", err)
	}
	a.WebSocketHub = ws.NewHub(cfg.WebSocket, logger, metrics)

	if err := a.initializeServices(); err != nil {
		return nil, err
	}
	a.setupRouter()
	a.createServer()
	return a, nil
}

func (a *Application) initializeServices() error {
	analysis, err := services.NewAnalysisService(a.Config, services.AnalysisDeps{
		Store:       a.Store,
		Player:      a.Player,
		Cache:       a.Cache,
		Broadcaster: a.WebSocketHub,
		Tracer:      a.OTelProviders.Tracer,
		Metrics:     a.Metrics,
		Logger:      a.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create analysis service: %w", err)
	}
	pb := services.NewPlaybackService(a.Store, a.Player, a.WebSocketHub, a.Config.Playback.FrameInterval, a.Metrics, a.Logger)
	a.WebSocketHub.SetGreeting(pb.Greeting)

	a.Services = &ServiceContainer{
		Analysis: analysis,
		Playback: pb,
		Health:   services.NewHealthService(contracts.Version, a.Store, a.WebSocketHub, a.Logger),
	}
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// these do not wrap the ResponseWriter, so the websocket upgrade survives
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	upgrader := ws.NewUpgrader(a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).
		Handle("/ws", handlers.NewWebSocketHandler(a.WebSocketHub, upgrader, a.Logger))

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.corsConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Route("/api", a.setupAPIRoutes)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)
	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Use(customMiddleware.StripSlashes)
	r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout))
	r.Use(customMiddleware.Compress(compressLevel))

	health := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	r.Mount("/health", health.Routes())
	r.Get("/version", health.Version)
	r.Mount("/stats", handlers.NewMetricsHandler(a.Cache.Stats, a.WebSocketHub).Routes())

	r.Mount("/recordings", handlers.NewRecordingsHandler(a.Services.Analysis, a.Config.Analysis.MaxUploadBytes, a.Logger, a.ErrorHandler).Routes())
	r.Mount("/analysis", handlers.NewAnalysisHandler(a.Services.Analysis, a.Logger, a.ErrorHandler).Routes())
	r.Mount("/playback", handlers.NewPlaybackHandler(a.Services.Playback, a.Logger, a.ErrorHandler).Routes())
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			"X-Request-ID",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Preload loads recordings, or the recordings inside directories, before
// serving
func (a *Application) Preload(ctx context.Context, args []string) ([]api.LoadResponse, error) {
	if len(args) == 0 {
		return nil, nil
	}
	paths, err := files.NewDiscovery(a.Config.Paths.DataDir).Expand(args)
	if err != nil {
		return nil, err
	}
	return a.Services.Analysis.LoadFiles(ctx, paths, services.LoadOptions{})
}

// Serve runs the hub, the playback loop and the HTTP server on ln until ctx
// is cancelled or one of them fails, then shuts everything down.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("address", ln.Addr().String()),
		slog.String("level", a.Config.Logging.Level))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.WebSocketHub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return a.Services.Playback.Run(gctx)
	})
	g.Go(func() error {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(ctx))
	})
	return g.Wait()
}

// Start listens on the configured port and serves until ctx is done
func (a *Application) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Stop gracefully stops the server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run serves until SIGINT or SIGTERM
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Start(ctx)
}
