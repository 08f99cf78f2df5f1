package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/auth"
	"github.com/ekaya-inc/ekaya-content/pkg/cache"
	"github.com/ekaya-inc/ekaya-content/pkg/config"
	"github.com/ekaya-inc/ekaya-content/pkg/database"
	"github.com/ekaya-inc/ekaya-content/pkg/handlers"
	"github.com/ekaya-inc/ekaya-content/pkg/logging"
	"github.com/ekaya-inc/ekaya-content/pkg/middleware"
	"github.com/ekaya-inc/ekaya-content/pkg/providers"
	"github.com/ekaya-inc/ekaya-content/pkg/ratelimit"
	"github.com/ekaya-inc/ekaya-content/pkg/repositories"
	"github.com/ekaya-inc/ekaya-content/pkg/services"
	"github.com/ekaya-inc/ekaya-content/pkg/services/workqueue"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("redis", cfg.Redis.Addr()),
		zap.Int("generation_workers", cfg.Generation.Workers))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.NewConnection(ctx, &database.Config{
		URL:             cfg.Database.ConnectionString(),
		MaxConnections:  cfg.Database.MaxConnections,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	sqlDB := db.SQLDB()
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = sqlDB.Close()

	// Rate limit store. Without one every check fails open.
	var store cache.Store
	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	switch {
	case err != nil:
		logger.Warn("Redis unavailable, rate limiting will fail open", zap.Error(err))
	case redisClient != nil:
		defer func() { _ = redisClient.Close() }()
		store = cache.NewRedisStore(redisClient)
	case cfg.RateLimit.LocalFallback:
		logger.Info("Redis not configured, using in-process rate limit store")
		store = cache.NewMemoryStore()
	default:
		logger.Warn("Redis not configured, rate limiting is disabled")
	}
	limiter := ratelimit.New(store, logger)

	// Providers
	registry, err := providers.NewRegistryFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to configure providers", zap.Error(err))
	}
	for _, kind := range []providers.Kind{providers.KindText, providers.KindImage, providers.KindVideo} {
		if _, ok := registry.Default(kind); !ok {
			logger.Warn("No default provider configured, units of this kind will fail",
				zap.String("kind", string(kind)))
		}
	}
	dispatcher := providers.NewDispatcher(registry, providers.DispatcherConfig{
		CallTimeout:      cfg.Generation.UnitTimeout,
		BatchConcurrency: cfg.Generation.CarouselSlides,
	}, logger)

	// Generation queue
	queue := workqueue.New(workqueue.Config{
		Workers:  cfg.Generation.Workers,
		Capacity: cfg.Generation.QueueSize,
	}, logger)

	// Services
	projectRepo := repositories.NewProjectRepository()
	contentRepo := repositories.NewContentRepository()
	costs := services.NewCostEstimator()
	runner := services.NewGenerationRunner(projectRepo, contentRepo, database.SystemScope(db), dispatcher, costs,
		services.RunnerConfig{
			UnitTimeout:    cfg.Generation.UnitTimeout,
			CarouselSlides: cfg.Generation.CarouselSlides,
		}, logger)
	contentService := services.NewContentService(projectRepo, contentRepo, runner, queue, logger)
	mediaService := services.NewMediaService(dispatcher, costs, logger)

	retention := services.NewRetentionService(projectRepo, database.SystemScope(db), services.RetentionConfig{
		DeletedRetention:     time.Duration(cfg.Retention.DeletedProjectDays) * 24 * time.Hour,
		StaleGeneratingAfter: cfg.Retention.StaleGeneratingAfter,
	}, logger)
	retention.RunScheduler(ctx, cfg.Retention.Interval)

	// Auth
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
		HMACSecret:         cfg.Auth.JWTSecret,
	})
	if err != nil {
		logger.Fatal("Failed to initialize JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(jwksClient, logger), logger)

	rateLimitOpts := middleware.RateLimitOptions{TrustForwardedFor: cfg.RateLimit.TrustForwardedFor}
	guards := handlers.Guards{
		Auth:  authMiddleware,
		Owner: database.WithOwnerContext(db, logger),
		RateLimit: func(scope ratelimit.Scope) handlers.RouteMiddleware {
			if !cfg.RateLimit.Enabled {
				return func(next http.HandlerFunc) http.HandlerFunc { return next }
			}
			return middleware.RateLimit(limiter, scope, rateLimitOpts, logger)
		},
	}

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, db, store, queue, logger).RegisterRoutes(mux)
	contentHandler := handlers.NewContentHandler(contentService, logger)
	if store != nil && cfg.Generation.IdempotencyTTL > 0 {
		contentHandler.WithIdempotency(store, cfg.Generation.IdempotencyTTL)
	}
	contentHandler.RegisterRoutes(mux, guards)
	handlers.NewMediaHandler(mediaService, logger).RegisterRoutes(mux, guards)
	handlers.NewAdminHandler(limiter, queue, logger).RegisterRoutes(mux, guards)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-content",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Error("Server failed", zap.Error(err))
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	// Jobs still queued when the deadline passes are cancelled and their
	// projects marked failed by the runner.
	if err := queue.Shutdown(shutdownCtx); err != nil {
		logger.Error("Generation queue shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsLocal() {
		return zap.NewDevelopmentConfig().Build()
	}
	return zap.NewProduction()
}
