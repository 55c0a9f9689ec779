// Package main provides the entry point for the API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/jeevandhara/bloodbank/internal/api"
	"github.com/jeevandhara/bloodbank/internal/database"
	pgstore "github.com/jeevandhara/bloodbank/internal/store/postgres"
	"github.com/jeevandhara/bloodbank/pkg/config"
	"github.com/jeevandhara/bloodbank/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	log := logger.New(slog.LevelInfo, true)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(cfg.DatabaseDSN); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store, err := pgstore.NewPostgresStore(pgstore.DefaultConfig(cfg.DatabaseDSN), log.Logger)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	server, err := api.NewServer(cfg, store, log.Logger)
	if err != nil {
		log.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
