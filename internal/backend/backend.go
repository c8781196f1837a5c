// Package backend selects and builds the ledger store and the optional event
// publisher from application configuration.
package backend

import (
	"context"
	"fmt"

	"expenses/internal/amqp"
	"expenses/internal/config"
	"expenses/internal/ledger"
)

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc releases backend resources
type CleanupFunc func() error

// BackendResult contains the built store, the publisher when AMQP is
// configured, and a cleanup function closing both.
type BackendResult struct {
	Store     ledger.Store
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// AMQP is optional; an empty URL disables publishing
	AMQPURL          string
	AMQPExchange     string
	AMQPExpenseQueue string
	AMQPAlertQueue   string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:             backendType,
		SQLiteDBPath:     appConfig.SQLiteDBPath,
		AMQPURL:          appConfig.AMQPURL,
		AMQPExchange:     appConfig.AMQPExchange,
		AMQPExpenseQueue: appConfig.AMQPExpenseQueue,
		AMQPAlertQueue:   appConfig.AMQPAlertQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	return nil
}
