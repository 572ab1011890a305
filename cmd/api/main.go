package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/github-project-dashboard/internal/aggregator"
	"github.com/kurihiro0119/github-project-dashboard/internal/api"
	"github.com/kurihiro0119/github-project-dashboard/internal/auth"
	"github.com/kurihiro0119/github-project-dashboard/internal/collector"
	"github.com/kurihiro0119/github-project-dashboard/internal/config"
	"github.com/kurihiro0119/github-project-dashboard/internal/gist"
	"github.com/kurihiro0119/github-project-dashboard/internal/logging"
	"github.com/kurihiro0119/github-project-dashboard/internal/status"
	"github.com/kurihiro0119/github-project-dashboard/internal/storage"
	"github.com/kurihiro0119/github-project-dashboard/internal/storage/postgres"
	"github.com/kurihiro0119/github-project-dashboard/internal/storage/sqlite"
)

// sessionPurgeInterval paces the removal of expired sessions and idle state
const sessionPurgeInterval = 5 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.SetupLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.CloseFile()

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize storage
	store, err := newStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", cfg.StorageType, err)
	}
	defer store.Close()

	factory, err := collector.NewFactory(cfg.GitHubAPIURL, logger)
	if err != nil {
		return err
	}

	configResolver := gist.NewResolver(factory, cfg.GistName, logger)
	agg := aggregator.NewAggregator(factory, configResolver, logger)
	caches := status.NewRegistry()
	sessions := auth.NewManager(store, factory, caches, cfg.SessionTTL, logger)
	oauth := auth.NewOAuth(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.OAuthCallbackURL)

	handler := api.NewHandler(agg, configResolver, status.NewResolver(factory, cfg.WorkflowName, logger), caches, logger)
	authHandler := api.NewAuthHandler(sessions, oauth, factory, api.CookieOptions{
		Name:   cfg.SessionCookie,
		TTL:    cfg.SessionTTL,
		Secure: cfg.SecureCookies,
	}, logger)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRoutes(handler, authHandler, sessions, cfg.SessionCookie, cfg.CORSOrigins, logger)

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessions.RunPurger(ctx, sessionPurgeInterval)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("starting API server", "addr", addr, "storage", cfg.StorageType, "gist", cfg.GistName)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info("server stopped")
	return nil
}

func newStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	}
}
