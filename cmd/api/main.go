// Package main is the entrypoint for the subscription API server.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/subkeeper/subkeeper/internal/cache"
	"github.com/subkeeper/subkeeper/internal/config"
	"github.com/subkeeper/subkeeper/internal/handler"
	"github.com/subkeeper/subkeeper/internal/identity"
	"github.com/subkeeper/subkeeper/internal/metrics"
	"github.com/subkeeper/subkeeper/internal/middleware"
	"github.com/subkeeper/subkeeper/internal/repository"
	"github.com/subkeeper/subkeeper/internal/router"
	"github.com/subkeeper/subkeeper/internal/server"
	"github.com/subkeeper/subkeeper/internal/service"
	"github.com/subkeeper/subkeeper/internal/worker"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.Options{
		MaxConns:       cfg.DBMaxConns,
		AcquireTimeout: cfg.DBAcquireTimeout,
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", config.SanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", config.RedactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database", slog.Int("max_conns", int(cfg.DBMaxConns)))

	// Redis is optional; without it requests are not rate limited.
	var (
		limiter     middleware.OwnerLimiter
		cacheHC     handler.HealthChecker
		cacheClient *cache.Cache
	)
	if cfg.RateLimitEnabled() {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cache.Options{
			PoolSize:        cfg.RedisPoolSize,
			MinIdleConns:    cfg.RedisMinIdleConns,
			PoolTimeout:     cfg.RedisPoolTimeout,
			ConnMaxIdleTime: cfg.RedisConnMaxIdleTime,
		})
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", config.SanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", config.RedactURL(cfg.RedisURL)),
			)
			repo.Close()
			os.Exit(1)
		}
		limiter = cacheClient
		cacheHC = cacheClient
		logger.Info("connected to Redis", slog.Int("rate_limit_rpm", cfg.RateLimitRPM))
	} else {
		logger.Info("rate limiting disabled")
	}

	recorder := metrics.NewInMemory()
	pool := worker.NewPool(cfg.WorkerPoolSize, cfg.WorkerQueueTimeout, recorder)
	subscriptions := service.NewSubscriptionService(service.NewRepositorySource(repo), pool, recorder, logger)

	verifier := identity.NewClient(cfg.AuthServerURL, identity.Options{
		Timeout:   cfg.AuthTimeout,
		RequestID: middleware.GetRequestID,
	})

	debugRoutes := !cfg.IsProduction() && cfg.AdminAPIToken != ""
	if cfg.AdminAPIToken == "" {
		logger.Info("admin routes disabled")
	}

	r := router.New(router.Deps{
		Logger:        logger,
		Subscriptions: subscriptions,
		Verifier:      verifier,
		Metrics:       recorder,
		Snapshotter:   recorder,
		Gauges: []handler.Gauge{
			{Name: "subkeeper_worker_in_flight", Value: func() float64 { return float64(pool.InFlight()) }},
			{Name: "subkeeper_worker_capacity", Value: func() float64 { return float64(pool.Size()) }},
			{Name: "subkeeper_db_connections_acquired", Value: func() float64 {
				acquired, _ := repo.Stats()
				return float64(acquired)
			}},
		},
		DB:                 repo,
		Cache:              cacheHC,
		Limiter:            limiter,
		RateLimitRPM:       cfg.RateLimitRPM,
		RateLimitBurst:     cfg.RateLimitBurst,
		AdminToken:         cfg.AdminAPIToken,
		DebugRoutes:        debugRoutes,
		IsDevelopment:      cfg.IsDevelopment(),
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := server.New(r, server.Options{
		Addr:            cfg.Addr(),
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// LIFO: Redis closes before Postgres.
	srv.OnShutdown("postgres", func(ctx context.Context) error {
		repo.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(ctx context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"addr", cfg.Addr(),
		"env", cfg.AppEnv,
		"auth_server", config.RedactURL(cfg.AuthServerURL),
		"worker_pool_size", pool.Size(),
		"debug_routes", debugRoutes,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "subkeeper")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
