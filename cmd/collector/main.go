// Package main is the entrypoint for the Signalbeam collector server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/signalbeam/signalbeam/internal/cache"
	"github.com/signalbeam/signalbeam/internal/config"
	"github.com/signalbeam/signalbeam/internal/handler"
	"github.com/signalbeam/signalbeam/internal/ingest"
	"github.com/signalbeam/signalbeam/internal/metrics"
	"github.com/signalbeam/signalbeam/internal/middleware"
	"github.com/signalbeam/signalbeam/internal/repository"
	"github.com/signalbeam/signalbeam/internal/server"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Initialize pipeline components
	metricsRecorder := metrics.NewInMemory()
	eventRepo := repository.NewEventRepository(repo)
	publisher := ingest.NewPublisher(cacheClient.Client(), logger)

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient, cacheClient)
	ingestHandler := handler.NewIngestHandler(publisher, eventRepo, cacheClient, logger, metricsRecorder, cfg.MaxBatchEvents)
	statsHandler := handler.NewStatsHandler(eventRepo, cacheClient, logger)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)

	// Setup router
	r := setupRouter(h, healthHandler, ingestHandler, statsHandler, metricsHandler, cacheClient, cfg, logger)

	// Create server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Start the stream consumer worker
	if cfg.StreamWorkerEnabled {
		worker := ingest.NewWorker(cacheClient.Client(), eventRepo, logger, ingest.NewConsumerID(), metricsRecorder)
		worker.SetBatchSize(cfg.StreamBatchSize)
		worker.SetBlockTimeout(cfg.StreamBlockTimeout)
		worker.SetStatsInvalidator(cacheClient)

		workerCtx, workerCancel := context.WithCancel(ctx)
		go func() {
			if err := worker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
				logger.Error("ingest worker exited", "error", err)
			}
		}()

		srv.OnShutdown("ingest worker", func(shutdownCtx context.Context) error {
			workerCancel()
			return worker.Shutdown(shutdownCtx)
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"stream_worker", cfg.StreamWorkerEnabled,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	ingestHandler *handler.IngestHandler,
	statsHandler *handler.StatsHandler,
	metricsHandler *handler.MetricsHandler,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment: cfg.IsDevelopment(),
	}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// CORS for browser SDKs
	if origins := cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = origins
		r.Use(middleware.CORS(corsCfg))
	}

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Root info endpoint
	r.Get("/", h.Hello)

	// Metrics exposition
	r.Get("/metrics", metricsHandler.Metrics)

	// Auth middleware configuration
	authCfg := middleware.AuthConfig{
		Logger:        logger,
		Cache:         cacheClient,
		IngestKeyHash: cfg.IngestKeyHash,
	}

	// Rate limit middleware configuration
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:        logger,
		Cache:         cacheClient,
		IngestEnabled: cfg.RateLimitIngestEnabled,
		IngestRPS:     cfg.RateLimitIngestRPS,
		IngestBurst:   cfg.RateLimitIngestBurst,
	}

	// Telemetry routes
	r.Route("/api/telemetry", func(r chi.Router) {
		r.With(
			middleware.IngestAuth(authCfg),
			middleware.RateLimitIngest(rateLimitCfg),
			middleware.RequireJSON(),
		).Post("/", ingestHandler.Ingest)

		r.With(middleware.IngestAuth(authCfg)).Get("/stats", statsHandler.Stats)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
