package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/todo-tracker/internal/api"
	"github.com/dom/todo-tracker/internal/cache"
	"github.com/dom/todo-tracker/internal/config"
	"github.com/dom/todo-tracker/internal/repository"
	"github.com/dom/todo-tracker/internal/repository/memory"
	"github.com/dom/todo-tracker/internal/repository/postgres"
	"github.com/dom/todo-tracker/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize repositories
	var repos *repository.Repositories
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		repos = memory.NewRepositories()
	default:
		db, err := postgres.NewConnection(cfg.DatabaseURL, cfg.DBLogLevel)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		repos = postgres.NewRepositories(db)
	}

	// Optional session cache
	var sessionCache service.SessionCache
	closeCache := func() {}
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		closeCache = func() { client.Close() }
		defer closeCache()
		sessionCache = cache.NewSessionCache(client)
		logger.Info("session cache enabled", "ttl", cfg.SessionCacheTTL)
	}

	services := service.NewServices(repos, cfg, sessionCache, logger)
	go services.Tokens.RunPurger(ctx, cfg.SessionPurgeInterval)

	router := api.NewRouter(services, cfg, logger)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "environment", cfg.Environment, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if err := run(ctx, srv, serveErr, logger); err != nil {
		stop()
		closeCache()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// run blocks until the server fails or ctx is cancelled, then shuts the
// server down.
func run(ctx context.Context, srv *http.Server, serveErr <-chan error, logger *slog.Logger) error {
	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("failed to start server", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return err
	}
	return nil
}
