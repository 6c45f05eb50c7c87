// seed inserts development sample data for local testing. Run via go run ./cmd/seed after migrating.
// Idempotent: existing roles and the demo user (demo@aviater.com) are left as they are.
package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"mini-iam/backend/internal/config"
	"mini-iam/backend/internal/db"
	"mini-iam/backend/internal/logger"
	"mini-iam/backend/internal/security"
	userrepo "mini-iam/backend/internal/user/repository"
	userservice "mini-iam/backend/internal/user/service"
)

const (
	demoName     = "Demo user"
	demoEmail    = "demo@aviater.com"
	demoPassword = "Demo@321"
	demoRole     = "Developer"
)

var seedRoles = []string{"Admin", "Developer"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log := logger.New(cfg.LogLevel, cfg.Env)
	defer func() { _ = log.Sync() }()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer conn.Close()

	repo := userrepo.NewPostgresRepository(conn)
	users := userservice.NewUserService(repo, security.NewHasher(cfg.BcryptCost), log)
	if err := seed(ctx, users, repo, log); err != nil {
		log.Fatal("seed", zap.Error(err))
	}
	log.Info("seed complete", zap.String("email", demoEmail))
}

func seed(ctx context.Context, users *userservice.UserService, repo userrepo.Repository, log *zap.Logger) error {
	for _, name := range seedRoles {
		_, err := users.CreateRole(ctx, name, "")
		switch {
		case err == nil:
			log.Info("role created", zap.String("role", name))
		case errors.Is(err, userservice.ErrRoleAlreadyExists):
			log.Debug("role exists", zap.String("role", name))
		default:
			return err
		}
	}

	u, err := repo.GetByEmail(ctx, demoEmail)
	if err != nil {
		return err
	}
	if u == nil {
		u, err = users.Create(ctx, demoName, demoEmail, demoPassword, "")
		if err != nil {
			return err
		}
	}
	_, err = users.AddRole(ctx, u.ID, demoRole)
	return err
}
