package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fleetledger/internal/amqp"
	"fleetledger/internal/config"
	"fleetledger/internal/export"
	"fleetledger/internal/export/google"
	"fleetledger/internal/export/memory"
	applog "fleetledger/internal/log"
	"fleetledger/internal/storage"
	"fleetledger/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Export destination: Google Sheets when configured, otherwise an
	// in-memory writer so local runs still exercise the full pipeline.
	var writer export.ReportWriter
	if cfg.GoogleSpreadsheetID != "" {
		writer, err = google.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleReportSheet, cfg.GoogleMonthlySheet)
		if err != nil {
			logger.WithComponent(applog.ComponentExport).Error("Failed to initialize Google Sheets writer", "error", err)
			os.Exit(1)
		}
		logger.WithComponent(applog.ComponentExport).Info("Google Sheets export enabled",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"report_sheet", cfg.GoogleReportSheet,
			"monthly_sheet", cfg.GoogleMonthlySheet)
	} else {
		writer = memory.New()
		logger.WithComponent(applog.ComponentExport).Warn("GOOGLE_SPREADSHEET_ID not set, exporting to in-memory writer")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.WithComponent(applog.ComponentAMQP).Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(repo, writer, cfg.ExportBatchSize)

	// Catch up on entries whose export events were lost while we were down.
	if err := exportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup export check failed", "error", err)
	}

	go func() {
		err := amqpClient.ConsumeLedgerEvents(ctx, func(msg *amqp.LedgerEventMessage) error {
			return exportWorker.HandleLedgerEvent(ctx, msg)
		})
		if err != nil && ctx.Err() == nil {
			logger.WithComponent(applog.ComponentAMQP).Error("Ledger event consumer stopped", "error", err)
			cancel()
		}
	}()

	// Periodic sweep picks up entries whose events never arrived.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := exportWorker.ProcessPendingEntries(ctx); err != nil {
					logger.Error("Pending export sweep failed", "error", err)
				}
			}
		}
	}()

	logger.Info("Export worker started",
		"queue", cfg.AMQPQueue,
		"sweep_interval", cfg.SweepInterval.String(),
		"batch_size", cfg.ExportBatchSize)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Worker context cancelled")
	}

	cancel()

	// Give the consumer loop a moment to nack in-flight deliveries.
	time.Sleep(500 * time.Millisecond)

	logger.Info("Export worker stopped gracefully")
}
