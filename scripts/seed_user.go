package main

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/khoahotran/stdtrack/adapters/persistence"
	authUC "github.com/khoahotran/stdtrack/internal/application/usecase/auth"
	"github.com/khoahotran/stdtrack/internal/config"
	"github.com/khoahotran/stdtrack/pkg/apperror"
	"github.com/khoahotran/stdtrack/pkg/auth"
	"github.com/khoahotran/stdtrack/pkg/logger"
)

// Creates the account named by SEED_EMAIL / SEED_PASSWORD, or resets its
// password when it already exists.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}
	log := logger.NewZapLogger(cfg.App.Env)
	defer func() { _ = log.Sync() }()

	email := os.Getenv("SEED_EMAIL")
	password := os.Getenv("SEED_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("SEED_EMAIL and SEED_PASSWORD are required", nil)
	}

	pool, err := persistence.NewPostgresPool(cfg, log)
	if err != nil {
		log.Fatal("Cannot connect Postgres", err)
	}
	defer pool.Close()

	ctx := context.Background()
	users := persistence.NewPostgresUserRepo(pool, log)
	uc := authUC.NewAuthUseCase(users, auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan), log)

	_, err = uc.SignUp(ctx, authUC.SignUpInput{Email: email, Password: password, DisplayName: os.Getenv("SEED_NAME")})
	switch {
	case err == nil:
		log.Info("Seeded user", zap.String("email", email))
	case errors.Is(err, apperror.ErrConflict):
		u, findErr := users.FindByEmail(ctx, email)
		if findErr != nil {
			log.Fatal("Cannot load existing user", findErr)
		}
		hash, hashErr := auth.HashPassword(password)
		if hashErr != nil {
			log.Fatal("Cannot hash password", hashErr)
		}
		if err := users.UpdatePassword(ctx, u.ID, hash); err != nil {
			log.Fatal("Cannot reset password", err)
		}
		log.Info("Reset password of existing user", zap.String("email", email))
	default:
		log.Fatal("Cannot seed user", err)
	}
}
