package main

import (
	"context"
	"os"
	"time"

	"budgetcare/internal/amqp"
	"budgetcare/internal/cli"
	"budgetcare/internal/config"
	"budgetcare/internal/log"
	gsheet "budgetcare/internal/sheets/google"
	"budgetcare/internal/storage"
	"budgetcare/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)
	logger = cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)

	logger.Info("Starting budgetcare-worker")

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sheets, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	broker, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer broker.Close()

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	syncWorker := worker.NewSyncWorker(repo, sheets, cfg.SyncBatchSize)
	if err := syncWorker.Run(ctx, broker, cfg.SyncInterval); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker stopped gracefully")
}
