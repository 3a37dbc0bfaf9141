package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"conti/internal/amqp"
	"conti/internal/services"
	"conti/internal/storage"
	"conti/internal/store"
	"conti/internal/store/memory"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	// newPublisher dials the broker; replaced in tests.
	newPublisher func(url, exchange, queue string) (publisher, error)
}

type publisher interface {
	services.LedgerPublisher
	Close() error
}

// NewFactory creates a new backend factory.
func NewFactory() *DefaultFactory {
	return &DefaultFactory{
		newPublisher: func(url, exchange, queue string) (publisher, error) {
			c, err := amqp.NewClient(url, exchange, queue)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// CreateBackend creates a backend instance based on the provided config.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backend config: %w", err)
	}

	var (
		st      store.Store
		cleanup []func() error
	)

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		st = repo
		cleanup = append(cleanup, repo.Close)
		slog.InfoContext(ctx, "Using SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		st = memory.New()
		slog.InfoContext(ctx, "Using in-memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	result := &BackendResult{Store: st}

	if config.AMQPURL != "" {
		pub, err := f.newPublisher(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			runCleanup(cleanup)
			return nil, fmt.Errorf("failed to initialize AMQP: %w", err)
		}
		result.Publisher = pub
		cleanup = append(cleanup, pub.Close)
		slog.InfoContext(ctx, "AMQP publisher enabled", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
	} else {
		slog.InfoContext(ctx, "AMQP not configured, ledger sync events disabled")
	}

	result.Ready = func(ctx context.Context) error {
		if p, ok := st.(pinger); ok {
			return p.Ping(ctx)
		}
		return nil
	}
	result.Cleanup = func() error {
		return runCleanup(cleanup)
	}

	return result, nil
}

// runCleanup releases resources in reverse acquisition order.
func runCleanup(fns []func() error) error {
	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
