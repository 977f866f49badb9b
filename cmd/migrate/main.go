package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"project-service/db"
	"project-service/internal/config"
	"project-service/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := config.NewLogger(os.Stderr, cfg.LogLevel)

	if cfg.DatabaseDSN == "" {
		logger.Error("DB_DSN is required")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, sqlDB, err := store.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	defer sqlDB.Close()

	applied, err := db.Apply(ctx, sqlDB, logger)
	if err != nil {
		logger.Error("migration failed", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations complete", "applied", len(applied))
}
