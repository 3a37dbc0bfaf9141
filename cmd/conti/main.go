package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"conti/internal/backend"
	"conti/internal/cache"
	"conti/internal/cli"
	"conti/internal/config"
	apphttp "conti/internal/http"
	applog "conti/internal/log"
	"conti/internal/rates"
	"conti/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		applog.New(applog.DefaultConfig()).Warn("Failed to load .env file", "error", err)
	}

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	be, err := backend.NewFactory().CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	rateLogger := logger.WithComponent(applog.ComponentRates).Slog()
	cached := rates.NewCachedProvider(rates.NewFrankfurterProvider(cfg.RatesURL, cfg.RatesTimeout), cfg.RatesTTL, rateLogger)
	rateSource := rates.NewSource(cached, rateLogger)

	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog())
	caches.Register(cached.Cache())
	caches.StartCleanup(cfg.RatesTTL)
	defer caches.Stop()

	balance := services.NewBalanceService(be.Store, be.Publisher, logger.WithComponent(applog.ComponentBalance).Slog())
	savings := services.NewSavingsService(be.Store, rateSource, logger.WithComponent(applog.ComponentSavings).Slog())
	export := services.NewExportService(be.Store, logger.WithComponent(applog.ComponentExport).Slog())

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Balance:            balance,
		Templates:          services.NewTemplateProcessor(balance),
		Savings:            savings,
		Export:             export,
		ExportDir:          cfg.ExportDir,
		Rates:              rateSource,
		Ready:              be.Ready,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting conti server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
