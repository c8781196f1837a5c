package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expenses/internal/amqp"
	"expenses/internal/ledger"
	"expenses/internal/ledger/memory"
	applog "expenses/internal/log"
	"expenses/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend builds the store for config.Type. A broker that cannot be
// reached is logged and the backend runs without publishing.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store ledger.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	var publisher *amqp.Client
	if config.AMQPURL != "" {
		publisher, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPExpenseQueue, config.AMQPAlertQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
			publisher = nil
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"expense_queue", config.AMQPExpenseQueue,
				"alert_queue", config.AMQPAlertQueue)
		}
	}

	return &BackendResult{
		Store:     store,
		Publisher: publisher,
		Cleanup: func() error {
			var errs []error
			if publisher != nil {
				if err := publisher.Close(); err != nil {
					errs = append(errs, fmt.Errorf("amqp: %w", err))
				}
			}
			if err := store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("store: %w", err))
			}
			return errors.Join(errs...)
		},
	}, nil
}
