// app/bootstrap.go
package app

import (
	"context"

	"go.uber.org/zap"

	"Gin_postgres_redis_asset_loan/config"
	"Gin_postgres_redis_asset_loan/db"
	"Gin_postgres_redis_asset_loan/logging"
	"Gin_postgres_redis_asset_loan/models"
	"Gin_postgres_redis_asset_loan/session"
)

// BootstrapFirstAdmin creates the configured admin account when the
// database has no admin yet. It is a no-op without credentials.
func BootstrapFirstAdmin(ctx context.Context, cfg config.BootstrapAdmin, repo *db.Repo) error {
	if cfg.Username == "" || cfg.Password == "" {
		return nil
	}
	n, err := repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := session.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	u, err := repo.CreateUser(ctx, db.UserInput{
		NIK:          cfg.NIK,
		Username:     cfg.Username,
		PasswordHash: hash,
		FullName:     "Administrator",
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	logging.Info("[BOOTSTRAP] created first admin", zap.Uint("user_id", u.ID), zap.String("username", u.Username))
	return nil
}
