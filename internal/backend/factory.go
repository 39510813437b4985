package backend

import (
	"context"
	"errors"
	"fmt"

	"tourledger/internal/amqp"
	applog "tourledger/internal/log"
	"tourledger/internal/sheets/google"
	"tourledger/internal/sheets/memory"
	"tourledger/internal/storage"
)

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

var _ Factory = (*DefaultFactory)(nil)

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	default:
		return f.createMemoryBackend(ctx, config)
	}
}

// createSQLiteBackend opens the local database. The AMQP client is optional:
// without it new records still reach the sheet through the outbox sweep.
func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	result := &Result{
		Type:    SQLiteBackend,
		Store:   repo,
		Cleanup: repo.Close,
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync notifications",
				applog.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Notifier = client
			result.Cleanup = func() error {
				return errors.Join(client.Close(), repo.Close())
			}
		}
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", result.Notifier != nil)
	return result, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	client, err := google.New(ctx, config.SheetsConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID)
	return &Result{
		Type:    SheetsBackend,
		Store:   client,
		Cleanup: noCleanup,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*Result, error) {
	store := memory.New()
	if config.DataDirectory != "" {
		seeded, err := memory.NewFromFiles(config.DataDirectory)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
		store = seeded
	}

	f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", config.DataDirectory)
	return &Result{
		Type:    MemoryBackend,
		Store:   store,
		Cleanup: noCleanup,
	}, nil
}

func noCleanup() error { return nil }
