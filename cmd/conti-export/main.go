package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"conti/internal/backend"
	"conti/internal/cli"
	"conti/internal/config"
	applog "conti/internal/log"
	"conti/internal/services"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		applog.New(applog.DefaultConfig()).Warn("Failed to load .env file", "error", err)
	}

	cfg := config.Load()
	dir := flag.String("dir", cfg.ExportDir, "directory the CSV files are written to")
	timeout := flag.Duration("timeout", time.Minute, "maximum export duration")
	flag.Parse()

	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentExport)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	// The export only reads; ledger events stay with the server.
	cfg.AMQPURL = ""

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	paths, err := run(ctx, cfg, *dir, logger)
	if err != nil {
		logger.Error("Export failed", "error", err, "dir", *dir)
		os.Exit(1)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}

func run(ctx context.Context, cfg *config.Config, dir string, logger *applog.Logger) ([]string, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	be, err := backend.NewFactory().CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	return services.NewExportService(be.Store, logger.Slog()).Export(ctx, dir)
}
