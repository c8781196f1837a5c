package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"expenses/internal/cli"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting recurring-worker", applog.FieldOperation, applog.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	res, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	processor := cli.NewServices(cfg, res).Recurring

	logger.Info("Recurring expense processor configured",
		applog.FieldInterval, cfg.RecurringInterval,
		"backend", cfg.DataBackend,
		"amqp_enabled", res.Publisher != nil)

	run(ctx, logger, processor, cfg.RecurringInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker shutdown complete", applog.FieldOperation, applog.OpShutdown)
}

// run processes once at start and then on every tick until ctx is cancelled.
// Each pass uses the tick's UTC calendar date as today.
func run(ctx context.Context, logger *slog.Logger, processor *services.RecurringProcessor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	process := func(now time.Time) {
		today := core.DateOf(now.UTC())
		result, err := processor.ProcessAll(ctx, today)
		if err != nil {
			logger.Error("Recurring processing failed",
				applog.FieldOperation, applog.OpRecurring,
				"today", today.String(),
				applog.FieldError, err)
			return
		}
		logger.Info("Recurring processing complete",
			applog.FieldOperation, applog.OpRecurring,
			"today", today.String(),
			"created", result.Created,
			"checked", result.Checked,
			"next_check", now.Add(interval).Format(time.RFC3339))
	}

	logger.Info("Running initial recurring expense processing")
	process(time.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			process(now)
		}
	}
}
