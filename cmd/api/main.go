package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pymesoft/comercio-backend/api/routes"
	"github.com/pymesoft/comercio-backend/internal/notifications"
	"github.com/pymesoft/comercio-backend/internal/orders"
	"github.com/pymesoft/comercio-backend/internal/payments"
	stripewebhook "github.com/pymesoft/comercio-backend/internal/webhooks/stripe"
	"github.com/pymesoft/comercio-backend/pkg/config"
	"github.com/pymesoft/comercio-backend/pkg/db"
	"github.com/pymesoft/comercio-backend/pkg/logger"
	"github.com/pymesoft/comercio-backend/pkg/mailer"
	"github.com/pymesoft/comercio-backend/pkg/metrics"
	"github.com/pymesoft/comercio-backend/pkg/migrate"
	"github.com/pymesoft/comercio-backend/pkg/redis"
	"github.com/pymesoft/comercio-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var stripeClient *stripe.Client
	if cfg.Stripe.APIKey != "" {
		stripeClient, err = stripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to initialize stripe", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "stripe api key missing, provider payments disabled")
	}

	var mail mailer.Mailer
	if cfg.Sendgrid.APIKey != "" {
		mailClient, err := mailer.New(cfg.Sendgrid, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to initialize mailer", err)
			os.Exit(1)
		}
		mail = mailClient
	} else {
		logg.Warn(context.Background(), "sendgrid api key missing, email notifications disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reconciliationMetrics := metrics.NewReconciliationMetrics(registry)

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(
		payments.NewRepository(dbClient.DB()),
		dbClient,
		payments.NewStripeClient(stripeClient),
		cfg.Stripe.Currency,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(
		notifications.NewRepository(dbClient.DB()),
		mail,
		redisClient,
		cfg.Notifications.BroadcastChannel,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Payments: paymentsService,
		Notifier: notificationsService,
		Metrics:  reconciliationMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Stripe.WebhookEventTTL, "stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			logg,
			dbClient,
			redisClient,
			ordersService,
			paymentsService,
			notificationsService,
			stripeClient,
			webhookService,
			webhookGuard,
			registry,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error during server shutdown", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
