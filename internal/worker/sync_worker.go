package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"conti/internal/amqp"
	"conti/internal/sheets"
)

// SyncWorker appends ledger snapshots received from AMQP to the spreadsheet.
// Events already present in the sheet are skipped, so redelivered messages
// do not produce duplicate rows.
type SyncWorker struct {
	writer sheets.LedgerWriter
	reader sheets.LedgerReader
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSyncWorker wires the worker. reader may be nil, in which case only
// events handled by this process are deduplicated.
func NewSyncWorker(writer sheets.LedgerWriter, reader sheets.LedgerReader, logger *slog.Logger) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{
		writer: writer,
		reader: reader,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

// HandleLedgerSynced processes a single ledger message from AMQP.
func (w *SyncWorker) HandleLedgerSynced(ctx context.Context, msg *amqp.LedgerSyncedMessage) error {
	if msg == nil {
		return errors.New("nil ledger message")
	}
	id := msg.ID.String()

	w.logger.InfoContext(ctx, "Processing ledger message",
		"id", id,
		"month", msg.Month,
		"year", msg.Year)

	if w.alreadyExported(id) {
		w.logger.InfoContext(ctx, "Ledger event already exported, skipping", "id", id)
		return nil
	}

	ref, err := w.writer.AppendLedger(ctx, sheets.LedgerRow{EventID: id, LedgerSnapshot: msg.Snapshot()})
	if err != nil {
		return fmt.Errorf("append ledger to sheets: %w", err)
	}
	w.markExported(id)

	w.logger.InfoContext(ctx, "Successfully exported ledger",
		"id", id,
		"sheets_ref", ref,
		"total", msg.Totals.Total,
		"balance", msg.Balance)
	return nil
}

// StartupSyncCheck loads the event IDs already in the sheet so that
// messages redelivered after a restart are recognised.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if w.reader == nil {
		w.logger.InfoContext(ctx, "No ledger reader configured, skipping startup check")
		return nil
	}

	rows, err := w.reader.ReadLedger(ctx)
	if err != nil {
		return fmt.Errorf("read exported ledger: %w", err)
	}

	loaded := 0
	w.mu.Lock()
	for _, row := range rows {
		if row.EventID == "" {
			continue
		}
		w.seen[row.EventID] = struct{}{}
		loaded++
	}
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Startup sync check completed",
		"rows", len(rows),
		"events", loaded)
	return nil
}

// Exported reports how many distinct events this worker knows about.
func (w *SyncWorker) Exported() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}

func (w *SyncWorker) alreadyExported(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seen[id]
	return ok
}

func (w *SyncWorker) markExported(id string) {
	w.mu.Lock()
	w.seen[id] = struct{}{}
	w.mu.Unlock()
}
