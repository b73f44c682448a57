// Package cli holds the start-up steps shared by the expenseflow binaries.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expenseflow/internal/backend"
	"expenseflow/internal/config"
	"expenseflow/internal/log"
	"expenseflow/internal/repository"
	"expenseflow/internal/storage"
)

// SetupLogger builds a text logger at level on stdout and makes it the
// process default.
func SetupLogger(level string) *log.Logger {
	logger := log.NewText(log.ParseLevel(level), log.ComponentApp)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// It exits the process on validation failure.
func LoadAndValidateConfig() (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitStore opens the configured blob store. It exits the process on
// failure.
func InitStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (storage.Store, backend.CleanupFunc) {
	bcfg, err := backend.ConfigFrom(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	opened, err := backend.Open(ctx, bcfg, logger)
	if err != nil {
		logger.Error("Failed to initialize store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return opened.Store, opened.Close
}

// SeedIfConfigured applies the seed file named by cfg, if any. Existing
// users make it a no-op.
func SeedIfConfigured(ctx context.Context, logger *log.Logger, cfg *config.Config, seeder *repository.Seeder) error {
	if cfg.SeedFile == "" {
		return nil
	}
	seed, err := repository.LoadSeed(cfg.SeedFile)
	if err != nil {
		return err
	}
	res, err := seeder.Apply(ctx, seed, false)
	if err != nil {
		return err
	}
	if res.Skipped {
		logger.Info("Store already has users, seed skipped", "file", cfg.SeedFile)
		return nil
	}
	logger.Info("Seeded store", "file", cfg.SeedFile,
		"companies", res.Companies, "users", res.Users, "expenses", res.Expenses)
	return nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. The
// done channel closes once cleanup has run or timeout has passed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ended.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
