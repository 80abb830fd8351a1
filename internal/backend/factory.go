package backend

import (
	"context"
	"errors"
	"fmt"

	"finanzas/internal/amqp"
	applog "finanzas/internal/log"
	"finanzas/internal/ports"
	"finanzas/internal/services"
	"finanzas/internal/storage"
	"finanzas/internal/storage/memory"
	"finanzas/internal/storage/postgres"
)

// repository is what the persistent backends provide.
type repository interface {
	ports.TransactionStore
	ports.UserStore
	ports.SessionStore
	services.SessionPurger
	Ping(ctx context.Context) error
	Close() error
}

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentStorage})
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return f.persistent(ctx, repo, config), nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := postgres.New(ctx, config.DatabaseURL, config.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized PostgreSQL backend")
	return f.persistent(ctx, repo, config), nil
}

// persistent wraps a repository so that, when AMQP is configured,
// transaction writes publish change events.
func (f *DefaultFactory) persistent(ctx context.Context, repo repository, config Config) *BackendResult {
	var client *amqp.Client
	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		c, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", applog.FieldError, err.Error())
		} else {
			client, publisher = c, c
			f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		}
	}

	return &BackendResult{
		Transactions: services.NewTransactionService(repo, publisher, config.Location),
		Users:        repo,
		Sessions:     repo,
		Purger:       repo,
		Ready:        repo.Ping,
		Cleanup: func() error {
			var errs []error
			if client != nil {
				errs = append(errs, client.Close())
			}
			errs = append(errs, repo.Close())
			return errors.Join(errs...)
		},
	}
}

// createMemoryBackend keeps everything in process. Expired sessions are
// dropped on lookup, so no purger is needed.
func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.New(config.Location)
	res := &BackendResult{
		Transactions: store,
		Users:        store,
		Sessions:     store,
		Ready:        func(context.Context) error { return nil },
		Cleanup:      func() error { return nil },
	}
	if config.SeedFile != "" {
		path := config.SeedFile
		res.Seed = func(ctx context.Context, userID string) (int, error) {
			return store.SeedFile(ctx, userID, path)
		}
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)
	return res, nil
}
