// Command migrate applies the embedded schema migrations and exits.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/lookali/marketplace-api/internal/config"
	"github.com/lookali/marketplace-api/internal/postgres"
	"github.com/lookali/marketplace-api/pkg/logkey"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		fatal("config", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		fatal("db connect", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		fatal("migrate", err)
	}
	slog.Info("migrations applied")
}

func fatal(msg string, err error) {
	slog.Error(msg, slog.String(logkey.ERROR, err.Error()))
	os.Exit(1)
}
