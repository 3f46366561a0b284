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

	"github.com/marconicastro/zeropragas-sub000/internal/breaker"
	"github.com/marconicastro/zeropragas-sub000/internal/broker"
	brokernats "github.com/marconicastro/zeropragas-sub000/internal/broker/nats"
	"github.com/marconicastro/zeropragas-sub000/internal/config"
	"github.com/marconicastro/zeropragas-sub000/internal/dedup"
	"github.com/marconicastro/zeropragas-sub000/internal/delivery"
	"github.com/marconicastro/zeropragas-sub000/internal/downstream"
	"github.com/marconicastro/zeropragas-sub000/internal/downstream/adsapi"
	"github.com/marconicastro/zeropragas-sub000/internal/downstream/analytics"
	"github.com/marconicastro/zeropragas-sub000/internal/enrich"
	"github.com/marconicastro/zeropragas-sub000/internal/events"
	"github.com/marconicastro/zeropragas-sub000/internal/httpclient"
	"github.com/marconicastro/zeropragas-sub000/internal/logging"
	"github.com/marconicastro/zeropragas-sub000/internal/retry"
	"github.com/marconicastro/zeropragas-sub000/internal/security"
	"github.com/marconicastro/zeropragas-sub000/internal/server"
	"github.com/marconicastro/zeropragas-sub000/internal/store"
	"github.com/marconicastro/zeropragas-sub000/internal/store/postgres"
	"github.com/marconicastro/zeropragas-sub000/internal/worker"
)

func main() {
	cfg, err := config.Load(os.Getenv("ZP_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logging.Init(cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := httpclient.New(cfg.Delivery.HTTPTimeout)
	enricher := enrich.New()

	var clients []downstream.Client
	if cfg.Ads.Enabled() {
		clients = append(clients, adsapi.New(adsapi.Config{
			PixelID:       cfg.Ads.PixelID,
			AccessToken:   cfg.Ads.AccessToken,
			APIBase:       cfg.Ads.APIBase,
			TestEventCode: cfg.Ads.TestEventCode,
		}, httpClient, enricher))
	}
	if cfg.Analytics.Enabled() {
		clients = append(clients, analytics.New(analytics.Config{
			MeasurementID: cfg.Analytics.MeasurementID,
			APISecret:     cfg.Analytics.APISecret,
			APIBase:       cfg.Analytics.APIBase,
		}, httpClient, enricher))
	}

	var (
		users       store.UserContextStore
		deliveryLog store.DeliveryLogStore
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", slog.String("code", "DB_ERROR"), slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to run migrations", slog.String("code", "DB_ERROR"), slog.Any("error", err))
			os.Exit(1)
		}
		users = postgres.NewUserContextStore(db)
		deliveryLog = postgres.NewDeliveryLogStore(db)
	}

	hub := events.NewHub()
	cache := dedup.New(cfg.Dedup.TTL, cfg.Dedup.MaxEntries)
	exec := retry.NewExecutor(cfg.Profiles(), breaker.NewRegistry())

	opts := []delivery.Option{
		delivery.WithHub(hub),
		delivery.WithEventDeadline(cfg.Delivery.EventDeadline),
	}
	if deliveryLog != nil {
		opts = append(opts, delivery.WithDeliveryLog(deliveryLog))
	}
	orch := delivery.NewOrchestrator(cache, exec, &delivery.CompositeProvider{Users: users}, clients, opts...)

	var publisher broker.Publisher
	if cfg.NATSURL != "" {
		pub, err := brokernats.New(ctx, cfg.NATSURL)
		if err != nil {
			slog.Error("failed to connect to NATS", slog.String("code", "BROKER_ERROR"), slog.Any("error", err))
			os.Exit(1)
		}
		defer pub.Close()
		publisher = pub

		consumer, err := pub.Consumer(ctx)
		if err != nil {
			slog.Error("failed to create consumer", slog.String("code", "BROKER_ERROR"), slog.Any("error", err))
			os.Exit(1)
		}
		go worker.New(orch, consumer, pub).Start(ctx)
	}

	keyHashes := make(map[string]bool, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		keyHashes[security.HashKey(k)] = true
	}
	if len(keyHashes) == 0 {
		// Dev fallback so the browser API is usable out of the box.
		key, err := security.GenerateKey()
		if err == nil {
			keyHashes[security.HashKey(key)] = true
			slog.Warn("no api_keys configured, generated one for this run", slog.String("apiKey", key))
		}
	}

	srv := server.New(cfg, orch, publisher, users, hub, keyHashes)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}

	go func() {
		slog.Info("relay listening",
			slog.String("code", "SYS_STARTUP"),
			slog.String("addr", cfg.ListenAddr),
			slog.Int("downstreams", len(clients)),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", slog.Any("error", err))
	}
	slog.Info("relay stopped", slog.String("code", "SYS_SHUTDOWN"))
}
