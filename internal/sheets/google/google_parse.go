package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"conti/internal/core"
	"conti/internal/sheets"
)

// parseLedger converts a values matrix (as returned by the Sheets API) into
// ledger rows. A first row starting with "Timestamp" is treated as header.
func parseLedger(values [][]any) ([]sheets.LedgerRow, error) {
	var out []sheets.LedgerRow
	for i, raw := range values {
		row := toStrings(raw)
		if i == 0 && strings.EqualFold(safeGet(row, 0), "timestamp") {
			continue
		}
		if len(row) == 0 || strings.TrimSpace(safeGet(row, 0)) == "" {
			continue
		}
		parsed, err := parseLedgerRow(row)
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: %w", i+1, err)
		}
		out = append(out, parsed)
	}
	return out, nil
}

func parseLedgerRow(row []string) (sheets.LedgerRow, error) {
	ts, err := time.Parse(time.RFC3339, safeGet(row, 0))
	if err != nil {
		return sheets.LedgerRow{}, fmt.Errorf("timestamp: %w", err)
	}
	year, err := strconv.Atoi(safeGet(row, 2))
	if err != nil {
		return sheets.LedgerRow{}, fmt.Errorf("year: %w", err)
	}

	amounts := make([]float64, 6)
	for i := range amounts {
		v, ok := parseAmount(safeGet(row, 3+i))
		if !ok {
			return sheets.LedgerRow{}, fmt.Errorf("column %d: invalid amount %q", 4+i, safeGet(row, 3+i))
		}
		amounts[i] = v
	}

	return sheets.LedgerRow{
		EventID: safeGet(row, 9),
		LedgerSnapshot: core.LedgerSnapshot{
			Totals:   core.ExpenseTotals{Total: amounts[0], PartyA: amounts[1], PartyB: amounts[2]},
			Balance:  amounts[3],
			Debt:     core.DebtBalance{PartyA: amounts[4], PartyB: amounts[5]},
			Month:    safeGet(row, 1),
			Year:     year,
			SyncedAt: ts,
		},
	}, nil
}

// parseAmount accepts "1234.5", "1234,5" and "1.234,50" as rendered by a
// German-locale sheet. Empty cells are zero.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	if s == "" {
		return 0, true
	}
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ".", "")
	}
	return core.ParseDecimal(s)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
