package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/lookali/marketplace-api/internal/auth"
	"github.com/lookali/marketplace-api/internal/catalog"
	"github.com/lookali/marketplace-api/internal/config"
	"github.com/lookali/marketplace-api/internal/events"
	"github.com/lookali/marketplace-api/internal/httpx"
	kafkax "github.com/lookali/marketplace-api/internal/kafka"
	"github.com/lookali/marketplace-api/internal/lookup"
	"github.com/lookali/marketplace-api/internal/metrics"
	"github.com/lookali/marketplace-api/internal/orders"
	"github.com/lookali/marketplace-api/internal/payments"
	"github.com/lookali/marketplace-api/internal/postgres"
	"github.com/lookali/marketplace-api/internal/redisx"
	"github.com/lookali/marketplace-api/internal/reviews"
	"github.com/lookali/marketplace-api/internal/twofactor"
	"github.com/lookali/marketplace-api/pkg/logkey"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("api exited", slog.String(logkey.ERROR, err.Error()))
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
	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	statusCache := redisx.StatusCache{RDB: rdb}

	// Kafka producers, one per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderCreated, 1024)
	pChanged := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderStatusChanged, 1024)
	pReviews := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicReviewChanged, 1024)
	producers := []*kafkax.Producer{pCreated, pChanged, pReviews}
	for _, p := range producers {
		p.Start(ctx)
	}
	statusEvents := &events.Emitter{Sink: pChanged, Producer: cfg.ServiceName}

	// Services
	orderSvc := &orders.Service{
		Store:   &orders.Repo{DB: db},
		Cache:   statusCache,
		Created: &events.Emitter{Sink: pCreated, Producer: cfg.ServiceName},
		Changed: statusEvents,
	}
	processor := payments.NewClient(cfg.PaymentAPIBase)
	paymentRepo := &payments.Repo{DB: db}
	reconciler := &payments.Reconciler{
		Store:     paymentRepo,
		Processor: processor,
		Numbers:   orderSvc,
		Cache:     statusCache,
		Events:    statusEvents,
		ScanLimit: payments.DefaultScanLimit,
	}
	checkout := &payments.Checkout{Store: paymentRepo, Processor: processor, PublicBaseURL: cfg.PublicBaseURL}

	reviewRepo := &reviews.Repo{DB: db}
	reviewSvc := &reviews.Service{
		Store:  reviewRepo,
		Gate:   &reviews.Gate{Store: reviewRepo},
		Events: &events.Emitter{Sink: pReviews, Producer: cfg.ServiceName},
	}

	m := metrics.NewServerMetrics(prometheus.DefaultRegisterer, "api")
	verifier := auth.NewVerifier(cfg.JWTSecret)
	router := httpx.NewRouter(m, verifier.Middleware,
		&httpx.OrdersHandler{Orders: orderSvc},
		&httpx.PaymentsHandler{Reconciler: reconciler, Checkout: checkout, Metrics: m},
		&httpx.ReviewsHandler{Reviews: reviewSvc},
		&httpx.CatalogHandler{Catalog: &catalog.Service{Store: &catalog.Repo{DB: db}}},
		&httpx.AccountHandler{
			TwoFactor: &twofactor.Service{Store: &twofactor.Repo{DB: db}, Issuer: "Lookali"},
			Lookup:    lookup.New(cfg.ViaCEPBase, cfg.BrasilAPIBase, redisx.LookupCache{RDB: rdb}),
		},
	)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	err = g.Wait()

	// Handlers are done; flush whatever they queued.
	for _, p := range producers {
		p.Close()
	}
	for _, p := range producers {
		p.WaitClosed()
	}
	return err
}
