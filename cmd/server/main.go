// Command server runs the newsletter subscription API.
//
// All collaborators (Postgres, Redis, SES) are constructed once here and
// injected into the workflow explicitly; nothing lives at module scope.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/newsletter-service/internal/analytics"
	"github.com/ignite/newsletter-service/internal/api"
	"github.com/ignite/newsletter-service/internal/config"
	"github.com/ignite/newsletter-service/internal/mailer"
	"github.com/ignite/newsletter-service/internal/pkg/logger"
	"github.com/ignite/newsletter-service/internal/ratelimit"
	"github.com/ignite/newsletter-service/internal/repository/postgres"
	"github.com/ignite/newsletter-service/internal/service/subscription"
)

func main() {
	configPath := "config/config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		logger.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Postgres: durable subscriber records and the analytics event log.
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}
	cancel()
	defer db.Close()

	// Redis: shared rate-limit backend. A failed connection here is not
	// fatal; the limiter fails open at request time.
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("invalid redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	limiter := ratelimit.New(redisClient, ratelimit.Config{
		Limit:  cfg.RateLimit.Limit,
		Window: cfg.RateLimit.Window(),
		Exempt: cfg.RateLimit.Exempt,
	})

	sesMailer, err := mailer.NewSESMailer(ctx, cfg.SES,
		cfg.Newsletter.FromAddress, cfg.Newsletter.SiteURL)
	if err != nil {
		logger.Error("failed to create SES mailer", "error", err)
		os.Exit(1)
	}

	recorder := analytics.NewRecorder(postgres.NewAnalyticsRepo(db))

	workflow := subscription.NewService(
		postgres.NewSubscriberRepo(db),
		limiter,
		subscription.RandomTokenIssuer{},
		sesMailer,
		recorder,
		subscription.WithTokenTTL(cfg.Newsletter.TokenTTL()),
	)

	server := api.NewServer(cfg.Server, api.NewHandlers(workflow, recorder))

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
