package main

import (
	"context"
	"errors"
	"os"

	"tourledger/internal/amqp"
	"tourledger/internal/backend"
	"tourledger/internal/cli"
	applog "tourledger/internal/log"
	"tourledger/internal/services"
	"tourledger/internal/sheets/google"
	"tourledger/internal/storage"
	"tourledger/internal/worker"
)

func main() {
	bootstrap := cli.SetupLogger("info")
	if err := cli.LoadEnvFile(); err != nil {
		bootstrap.Warn("Failed to load .env file", applog.FieldError, err)
	}

	cfg := cli.MustLoadConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentWorker)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration invalid", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Starting tourledger-worker")

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	sheet, err := google.New(ctx, backendCfg.SheetsConfig())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	processor := services.NewSyncProcessor(repo, sheet, services.SyncProcessorConfig{BatchSize: cfg.SyncBatchSize})
	syncWorker, err := worker.NewSyncWorker(processor, cfg.SyncSchedule)
	if err != nil {
		logger.Error("Failed to create sync worker", applog.FieldError, err)
		os.Exit(1)
	}

	if stats, err := repo.SyncStats(ctx); err == nil {
		logger.Info("Outbox status", "pending", stats["pending"], "error", stats["error"], "synced", stats["synced"])
	}

	// Records written while the worker was down.
	if n, err := syncWorker.Sweep(ctx); err != nil {
		logger.Error("Startup sweep failed", applog.FieldError, err, "synced", n)
	}
	if err := syncWorker.Start(ctx); err != nil {
		logger.Error("Failed to schedule sweep", applog.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		// The scheduled sweep keeps the sheet current without the broker.
		logger.Error("Failed to initialize AMQP client, relying on sweep only", applog.FieldError, err)
	} else {
		defer amqpClient.Close()
		go func() {
			if err := amqpClient.ConsumeRecordSync(ctx, syncWorker.HandleSyncMessage); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err)
				cancel()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down worker")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stopCancel()
	syncWorker.Stop(stopCtx)
	logger.Info("Worker shutdown complete")
}
