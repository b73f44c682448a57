package main

import (
	"context"
	"os"
	"time"

	"expenseflow/internal/amqp"
	"expenseflow/internal/backend"
	"expenseflow/internal/cli"
	"expenseflow/internal/config"
	"expenseflow/internal/log"
	"expenseflow/internal/metrics"
	"expenseflow/internal/sheets"
	gsheet "expenseflow/internal/sheets/google"
	"expenseflow/internal/sheets/memory"
	"expenseflow/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting expenseflow-worker", "backend", cfg.DataBackend, "sync_interval", cfg.SyncInterval)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	store, closeStore := cli.InitStore(ctx, logger, cfg)
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("Failed to close store", log.FieldError, err)
		}
	}()
	repos := backend.NewRepositories(store, cfg.SessionTTL, logger)

	ledger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets ledger", log.FieldError, err)
		os.Exit(1)
	}

	var source worker.EventSource
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		source = client
	} else {
		logger.Info("AMQP disabled - relying on periodic reconciliation only")
	}

	w := worker.NewLedgerWorker(repos.Expenses, ledger, metrics.New(), logger, cfg.SyncInterval)
	if err := w.Run(ctx, source); err != nil && ctx.Err() == nil {
		logger.Error("Ledger worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}

// openLedger returns the Google Sheets ledger when one is configured and an
// in-memory ledger otherwise.
func openLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.LedgerWriter, error) {
	if !cfg.LedgerConfigured() {
		logger.Info("Google Sheets disabled - mirroring to an in-memory ledger")
		return memory.New(), nil
	}
	client, err := gsheet.NewClient(ctx, gsheet.Config{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
		Credentials: gsheet.Credentials{
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			OAuthClientJSON:    cfg.GoogleOAuthClientJSON,
			OAuthClientFile:    cfg.GoogleOAuthClientFile,
			OAuthTokenJSON:     cfg.GoogleOAuthTokenJSON,
			OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
