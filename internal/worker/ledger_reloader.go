package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// LedgerReloaderConfig holds configuration for the ledger reloader.
type LedgerReloaderConfig struct {
	// Interval is how often exported event ids are re-read from the sheet (default: 1h)
	Interval time.Duration
}

func DefaultLedgerReloaderConfig() LedgerReloaderConfig {
	return LedgerReloaderConfig{Interval: time.Hour}
}

// LedgerReloader periodically refreshes the worker's view of which events are
// already on the sheet, so rows appended by another worker are not duplicated.
type LedgerReloader struct {
	worker *SyncWorker
	config LedgerReloaderConfig
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewLedgerReloader(worker *SyncWorker, config LedgerReloaderConfig) *LedgerReloader {
	if config.Interval <= 0 {
		config.Interval = DefaultLedgerReloaderConfig().Interval
	}
	logger := slog.Default()
	if worker != nil {
		logger = worker.logger
	}
	return &LedgerReloader{worker: worker, config: config, logger: logger}
}

// Start begins the reload loop. Returns an error if already running.
func (r *LedgerReloader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("ledger reloader is already running")
	}
	if r.worker == nil {
		r.mu.Unlock()
		return errors.New("ledger reloader has no sync worker")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	r.logger.InfoContext(ctx, "Ledger reloader started", "interval", r.config.Interval)
	return nil
}

// Stop ends the loop and waits for the running reload to finish.
func (r *LedgerReloader) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.running = false
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		r.logger.InfoContext(ctx, "Ledger reloader stopped")
		return nil
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Ledger reloader stop timed out")
		return ctx.Err()
	}
}

func (r *LedgerReloader) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *LedgerReloader) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce re-reads the exported event ids. Errors are logged.
func (r *LedgerReloader) RunOnce(ctx context.Context) {
	if err := r.worker.StartupSyncCheck(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Ledger reload failed", "error", err)
	}
}
