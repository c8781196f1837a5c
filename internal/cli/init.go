// Package cli provides common process initialization shared by
// cmd/recurring-worker and cmd/budgetctl.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expenses/internal/backend"
	"expenses/internal/cache"
	"expenses/internal/config"
	applog "expenses/internal/log"
	"expenses/internal/services"
)

// SetupLogger installs a text logger on stdout as the default logger. The
// level comes from LOG_LEVEL; unknown values fall back to info.
func SetupLogger(component string) *slog.Logger {
	level, err := applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := applog.New(applog.Config{Level: level, Component: component})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Invalid LOG_LEVEL, using info", applog.FieldError, err)
	}
	return logger.Logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", applog.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend builds the configured store and optional publisher.
func InitBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}
	return res, nil
}

// Services bundles the engine services wired to one backend.
type Services struct {
	Expenses   *services.ExpenseService
	Categories *services.CategoryService
	Budgets    *services.BudgetService
	Reports    *services.ReportService
	Recurring  *services.RecurringProcessor
}

// NewServices wires every service to the backend. Publishing is enabled only
// when the backend carries an AMQP client.
func NewServices(cfg *config.Config, res *backend.BackendResult) *Services {
	var (
		expensePub services.ExpensePublisher
		alertPub   services.AlertPublisher
	)
	if res.Publisher != nil {
		expensePub = res.Publisher
		alertPub = res.Publisher
	}

	store := res.Store
	names := cache.NewLRUCache[int64, string](cfg.CategoryCacheSize, cfg.CategoryCacheTTL)
	return &Services{
		Expenses:   services.NewExpenseService(store, store),
		Categories: services.NewCategoryService(store),
		Budgets:    services.NewBudgetService(store, store, alertPub),
		Reports:    services.NewReportService(store, store, names),
		Recurring:  services.NewRecurringProcessor(store, expensePub),
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
