package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lookali/marketplace-api/internal/config"
	"github.com/lookali/marketplace-api/internal/events"
	kafkax "github.com/lookali/marketplace-api/internal/kafka"
	"github.com/lookali/marketplace-api/internal/postgres"
	"github.com/lookali/marketplace-api/internal/ratings"
	"github.com/lookali/marketplace-api/internal/redisx"
	"github.com/lookali/marketplace-api/internal/reviews"
	"github.com/lookali/marketplace-api/pkg/logkey"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("ratings worker exited", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	w := &ratings.Worker{
		Recomputer: &reviews.Recomputer{Store: &reviews.Repo{DB: db}},
		Dedup:      redisx.Deduper{RDB: rdb, Service: cfg.RatingsGroup},
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.RatingsGroup, events.TopicReviewChanged, cfg.RatingsWorkers)
	slog.Info("ratings consumer started",
		slog.String("group", cfg.RatingsGroup),
		slog.String("topic", events.TopicReviewChanged),
		slog.Int("workers", cfg.RatingsWorkers))

	err = cons.Start(ctx, w.HandleReviewChanged)
	if ctx.Err() != nil {
		slog.Info("ratings consumer stopped")
		return nil
	}
	return err
}
