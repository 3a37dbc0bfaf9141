package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"conti/internal/amqp"
	"conti/internal/cli"
	"conti/internal/config"
	applog "conti/internal/log"
	"conti/internal/sheets/google"
	"conti/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		applog.New(applog.DefaultConfig()).Warn("Failed to load .env file", "error", err)
	}

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)
	logger.Info("Starting conti-worker")

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	sheetsCfg := google.ConfigFromEnv()
	sheetsCfg.SpreadsheetID = cfg.GoogleSpreadsheetID
	sheetsCfg.SheetName = cfg.GoogleSheetName

	sheetsClient, err := google.New(ctx, sheetsCfg)
	if err != nil {
		return err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}

	syncWorker := worker.NewSyncWorker(sheetsClient, sheetsClient, logger.WithComponent(applog.ComponentWorker).Slog())

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		// Events may be exported twice until the next successful check.
		logger.Error("Failed startup sync check", "error", err)
	}

	reloader := worker.NewLedgerReloader(syncWorker, worker.LedgerReloaderConfig{Interval: cfg.SyncInterval})

	g, gctx := errgroup.WithContext(ctx)

	if err := reloader.Start(gctx); err != nil {
		return err
	}

	g.Go(func() error {
		return amqpClient.ConsumeLedgerSynced(gctx, syncWorker.HandleLedgerSynced)
	})

	done := cli.GracefulShutdown(gctx, logger, shutdownTimeout, func(ctx context.Context) error {
		return errors.Join(reloader.Stop(ctx), amqpClient.Close())
	})

	err = g.Wait()
	<-done
	logger.Info("Ledger rows exported", "count", syncWorker.Exported())
	return err
}
