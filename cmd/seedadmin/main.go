// Package main bootstraps an administrator or hospital account. Signup only
// creates donor accounts, so privileged accounts are seeded from the command
// line.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/jeevandhara/bloodbank/internal/auth"
	"github.com/jeevandhara/bloodbank/internal/database"
	"github.com/jeevandhara/bloodbank/internal/models"
	pgstore "github.com/jeevandhara/bloodbank/internal/store/postgres"
	"github.com/jeevandhara/bloodbank/pkg/config"
	"github.com/jeevandhara/bloodbank/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	var (
		name     = flag.String("name", "Administrator", "account display name")
		email    = flag.String("email", "", "account email (required)")
		password = flag.String("password", "", "account password (required, min 8 chars)")
		role     = flag.String("role", "admin", "account role: admin or hospital")
	)
	flag.Parse()

	log := logger.New(slog.LevelInfo, false)

	if *email == "" || len(*password) < 8 {
		log.Error("email and a password of at least 8 characters are required")
		os.Exit(2)
	}

	accountRole := models.Role(*role)
	if accountRole != models.RoleAdmin && accountRole != models.RoleHospital {
		log.Error("role must be admin or hospital", "role", *role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(cfg.DatabaseDSN); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	st, err := pgstore.NewPostgresStore(pgstore.DefaultConfig(cfg.DatabaseDSN), log.Logger)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Error("failed to hash password", "error", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	account := &models.Donor{
		ID:           uuid.New().String(),
		Name:         *name,
		Email:        models.NormalizeEmail(*email),
		PasswordHash: hash,
		Role:         accountRole,
		BloodType:    models.BloodTypeOPos,
		Eligible:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := st.Donors().Create(context.Background(), account); err != nil {
		if errors.Is(err, models.ErrConflict) {
			log.Error("an account with this email already exists", "email", account.Email)
			os.Exit(1)
		}
		log.Error("failed to create account", "error", err)
		os.Exit(1)
	}

	log.Info("account created",
		"id", account.ID,
		"email", account.Email,
		"role", account.Role.String())
}
