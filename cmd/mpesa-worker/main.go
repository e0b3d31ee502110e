package main

import (
	"context"
	"os"
	"time"

	"github.com/victoroki/MPESAAnalyzer/internal/amqp"
	"github.com/victoroki/MPESAAnalyzer/internal/cli"
	"github.com/victoroki/MPESAAnalyzer/internal/export"
	"github.com/victoroki/MPESAAnalyzer/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting mpesa-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	if !cfg.SheetsExportEnabled() {
		logger.Error("Report export disabled - GOOGLE_SPREADSHEET_ID not set, nothing to do")
		os.Exit(1)
	}

	exporter, err := export.NewSheetsExporterFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Sheets exporter", "error", err)
		os.Exit(1)
	}
	logger.Info("Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, exporter, cfg.ReportMonths)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	go func() {
		err := amqpClient.ConsumeSyncCompleted(ctx, func(msg *amqp.SyncCompletedMessage) error {
			return syncWorker.HandleSyncCompleted(ctx, msg)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
