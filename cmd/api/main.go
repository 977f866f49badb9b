package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"project-service/internal"
	"project-service/internal/config"
	"project-service/internal/service"
	"project-service/internal/store"
)

func main() {
	// .env is optional outside local development
	_ = godotenv.Load()

	cfg, err := config.LoadAndValidate()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(1)
	}

	logger := config.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db       *sql.DB
		projects store.ProjectRepository
		updates  store.UpdateRepository
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		mem := store.NewMemory()
		projects, updates = mem.Projects(), mem.Updates()
		logger.Warn("using in-memory store, data is lost on restart")
	default:
		pool, sqlDB, err := store.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		db = sqlDB
		projects = store.NewProjectPostgresRepository(db)
		updates = store.NewUpdatePostgresRepository(db)
	}

	svc := service.NewProjectService(projects, updates, service.WithLogger(logger))
	srv := internal.NewServer(cfg, db, svc, logger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting project service", "addr", cfg.ListenAddr, "store", cfg.StoreDriver, "env", cfg.Environment)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return srv.Close(shutdownCtx)
}
