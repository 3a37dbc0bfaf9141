// Package sheets declares the outbound port for exporting the ledger to a
// spreadsheet; google/ implements it on the Google Sheets API.
package sheets

import (
	"context"

	"conti/internal/core"
)

// LedgerRow is one exported ledger snapshot.
type LedgerRow struct {
	EventID string
	core.LedgerSnapshot
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		// AppendLedger appends the row and returns the written range.
		AppendLedger(ctx context.Context, row LedgerRow) (ref string, err error)
	}

	LedgerReader interface {
		ReadLedger(ctx context.Context) ([]LedgerRow, error)
	}
)
