// migrate runs DB migrations from embedded SQL: go run ./cmd/migrate [-direction up|down].
package main

import (
	"flag"

	"go.uber.org/zap"

	"mini-iam/backend/internal/config"
	"mini-iam/backend/internal/db/migrate"
	"mini-iam/backend/internal/logger"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log := logger.New(cfg.LogLevel, cfg.Env)
	defer func() { _ = log.Sync() }()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		log.Fatal("migrate", zap.String("direction", *direction), zap.Error(err))
	}
	log.Info("migrations applied", zap.String("direction", *direction))
}
