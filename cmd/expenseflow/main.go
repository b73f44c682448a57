package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expenseflow/internal/amqp"
	"expenseflow/internal/auth"
	"expenseflow/internal/backend"
	"expenseflow/internal/cache"
	"expenseflow/internal/cli"
	apphttp "expenseflow/internal/http"
	"expenseflow/internal/log"
	"expenseflow/internal/metrics"
	"expenseflow/internal/ports"
	"expenseflow/internal/services"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()
	logger.Info("Starting expenseflow", "port", cfg.Port, "backend", cfg.DataBackend, "demo_mode", cfg.DemoMode)

	ctx := context.Background()
	store, closeStore := cli.InitStore(ctx, logger, cfg)
	repos := backend.NewRepositories(store, cfg.SessionTTL, logger)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	if err := cli.SeedIfConfigured(ctx, logger, cfg, repos.Seeder(hasher)); err != nil {
		logger.Error("Failed to seed store", log.FieldError, err)
		os.Exit(1)
	}

	readiness := []apphttp.Check{{Name: "store", Check: store.Ping}}

	// Events are optional; without a broker nothing is mirrored to the ledger.
	var publisher ports.EventPublisher = ports.NopPublisher{}
	var broker *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		broker, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to connect to AMQP broker", log.FieldError, err)
			os.Exit(1)
		}
		publisher = broker
		readiness = append(readiness, apphttp.Check{
			Name:  "amqp",
			Check: func(context.Context) error { return broker.Ping() },
		})
		logger.Info("Publishing expense events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	m := metrics.New()
	expenses := services.NewExpenseService(services.ExpenseDeps{
		Expenses:  repos.Expenses,
		Users:     repos.Users,
		Companies: repos.Companies,
		Publisher: publisher,
		Metrics:   m,
		Logger:    logger,
		CacheTTL:  cfg.CacheTTL,
	})
	accounts := services.NewAccountService(services.AccountDeps{
		Users:     repos.Users,
		Companies: repos.Companies,
		Sessions:  repos.Sessions,
		Hasher:    hasher,
		Publisher: publisher,
		Metrics:   m,
		Logger:    logger,
		DemoMode:  cfg.DemoMode,
	})

	caches := cache.NewReporter(m, logger)
	if c := expenses.DashboardCache(); c != nil {
		caches.Register("dashboard", c)
	}
	caches.Start(time.Minute)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Expenses:           expenses,
		Accounts:           accounts,
		Metrics:            m,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Readiness:          readiness,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if broker != nil {
			if err := broker.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", log.FieldError, err)
			}
		}
		if err := closeStore(); err != nil {
			logger.Warn("Failed to close store", log.FieldError, err)
		}
	})

	logger.Info("Listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
