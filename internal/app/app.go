package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/linksnip/linksnip/internal/auth"
	"github.com/linksnip/linksnip/internal/config"
	"github.com/linksnip/linksnip/internal/httpx"
	"github.com/linksnip/linksnip/internal/link"
	"github.com/linksnip/linksnip/internal/migrations"
	"github.com/linksnip/linksnip/internal/payment"
	"github.com/linksnip/linksnip/internal/quota"
	"github.com/linksnip/linksnip/internal/ratelimit"
	"github.com/linksnip/linksnip/internal/server"
)

// App holds the application dependencies and configuration.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	DBPool      *pgxpool.Pool
	RedisClient *redis.Client
	Server      *server.Server
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context) (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application", "env", cfg.App.Environment)

	dbPool, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrations.Up(cfg.Database.URL(), logger); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	redisClient, limiter := setupRateLimiter(ctx, cfg, logger)

	authManager := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	linkStore := link.NewStore(dbPool, &link.StoreConfig{OpTimeout: cfg.Database.OpTimeout})
	ledger := quota.NewLedger(dbPool, &quota.LedgerConfig{OpTimeout: cfg.Database.OpTimeout})

	linkService := link.NewService(linkStore, ledger, &link.ServiceConfig{Logger: logger})
	linkHandler := link.NewHandler(linkService, logger, cfg.Server.BaseURL)

	quotaHandler := quota.NewHandler(ledger, logger)

	gateway := payment.NewClient(payment.ClientConfig{
		BaseURL:   cfg.Payment.APIBase,
		KeyID:     cfg.Payment.KeyID,
		KeySecret: cfg.Payment.KeySecret,
		Currency:  cfg.Payment.Currency,
		Timeout:   cfg.Payment.Timeout,
	})
	verifier := payment.NewVerifier(cfg.Payment.KeySecret)
	paymentService := payment.NewService(gateway, verifier, ledger, logger)
	paymentHandler := payment.NewHandler(paymentService, logger)

	srv := server.New(cfg, logger, linkHandler, quotaHandler, paymentHandler, authManager, limiter)

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	return &App{
		Config:      cfg,
		Logger:      logger,
		DBPool:      dbPool,
		RedisClient: redisClient,
		Server:      srv,
	}, nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("server starting",
		"port", a.Config.Server.Port,
		"base_url", a.Config.Server.BaseURL,
	)

	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Warn("failed to close redis client", "error", err.Error())
		}
	}

	return nil
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

// connectDatabase establishes a connection to the PostgreSQL database.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")

	return pool, nil
}

// setupRateLimiter connects to redis when configured. A missing or
// unreachable redis disables rate limiting rather than blocking startup;
// the limiter is a guardrail, not a dependency.
func setupRateLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, httpx.Allower) {
	if !cfg.Redis.Enabled() {
		logger.Info("rate limiting disabled: no redis address configured")
		return nil, ratelimit.Noop{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("rate limiting disabled: redis unreachable",
			"addr", cfg.Redis.Addr,
			"error", err.Error(),
		)
		_ = client.Close()
		return nil, ratelimit.Noop{}
	}

	logger.Info("rate limiting enabled",
		"addr", cfg.Redis.Addr,
		"limit", cfg.Redis.RateLimit,
		"window", cfg.Redis.RateLimitWindow.String(),
	)
	return client, ratelimit.New(client, cfg.Redis.RateLimit, cfg.Redis.RateLimitWindow)
}
