package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldsight/menara/internal"
	"github.com/fieldsight/menara/internal/auth"
	"github.com/fieldsight/menara/internal/handler"
	"github.com/fieldsight/menara/internal/jobs"
	"github.com/fieldsight/menara/internal/metrics"
	"github.com/fieldsight/menara/internal/middleware"
	"github.com/fieldsight/menara/internal/ml"
	"github.com/fieldsight/menara/internal/ml/mock"
	"github.com/fieldsight/menara/internal/repository"
	"github.com/fieldsight/menara/internal/service"
	"github.com/fieldsight/menara/internal/storage"
	"github.com/fieldsight/menara/internal/worker"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// Initialize photo storage
	var store storage.Storage
	switch cfg.StorageProvider {
	case storage.ProviderS3:
		store, err = storage.NewS3Storage(storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			BucketName:      cfg.S3BucketName,
			Region:          cfg.S3Region,
			PublicURL:       cfg.S3PublicURL,
		}, logger)
	default:
		store, err = storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	// Initialize the analysis client
	var analyzer ml.Analyzer
	if cfg.MLProvider == "http" {
		analyzer, err = ml.NewClient(ml.Config{
			BaseURL:        cfg.MLBaseURL,
			RequestTimeout: cfg.MLRequestTimeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("analysis client initialization failed: %w", err)
		}
	} else {
		analyzer = mock.New(logger)
		logger.Warn("Using mock analyzer; detection results are canned")
	}

	// Initialize token issuer
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("token issuer initialization failed: %w", err)
	}

	// Initialize services
	userService := service.NewUserService(repo, tokens, logger)
	photoService := service.NewPhotoService(store, service.NewImagingProcessor(), logger)
	inspectionService := service.NewInspectionService(db, repo, photoService, logger)
	towerService := service.NewTowerService(repo, logger)
	statsService := service.NewStatsService(repo, logger)

	// Initialize background worker
	var w *worker.Worker
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout
		workerCfg.StaleRecordThreshold = cfg.WorkerStaleRecordTimeout

		w, err = worker.New(db, repo, workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		w.Register(jobs.NewAnalyzeRecordHandler(repo, analyzer, store, logger))
		w.Start(ctx)
		logger.Info("Worker started", "concurrency", workerCfg.Concurrency)
	} else {
		logger.Warn("Worker disabled; submitted inspections will stay PENDING")
	}

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(tokens, logger)
	authLimiter := middleware.NewAuthRateLimiter(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(cfg.Env != "development")
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, logger)
	profileHandler := handler.NewProfileHandler(userService, logger)
	inspectionHandler := handler.NewInspectionHandler(inspectionService, logger)
	towerHandler := handler.NewTowerHandler(towerService, logger)
	statsHandler := handler.NewStatsHandler(statsService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Uploaded photos are served straight off disk when using local storage.
	// With S3 the URLs point at the bucket and this mount is never hit.
	if cfg.StorageProvider == storage.ProviderLocal {
		files := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", files))
	}

	// Auth routes (public, rate limited per endpoint)
	mux.Handle("POST /api/auth/register", authLimiter.LimitRegister(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", authLimiter.LimitLogin(http.HandlerFunc(authHandler.Login)))

	// Everything else under /api requires a valid token. Exact patterns
	// like the auth routes above take precedence over this subtree.
	api := http.NewServeMux()
	profileHandler.RegisterRoutes(api)
	inspectionHandler.RegisterRoutes(api)
	towerHandler.RegisterRoutes(api)
	statsHandler.RegisterRoutes(api)

	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser)
	mux.Handle("/api/", requireUser(api))

	// Outer middleware applies to every route
	root := middleware.Stack(
		securityMw.Handler,
		loggingMw.Handler,
		metrics.Middleware,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	// Let in-flight analysis jobs finish before exiting
	if w != nil {
		w.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
