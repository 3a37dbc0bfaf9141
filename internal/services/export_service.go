package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"conti/internal/core"
	"conti/internal/store"
)

// Table is a CSV document: a header row of field names and one row per record.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// WriteCSV encodes t as comma-separated values.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// ExportService dumps expenses, the latest income, debts and totals as CSV files.
type ExportService struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewExportService(st store.Store, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{store: st, logger: logger, now: time.Now}
}

func (s *ExportService) WithClock(now func() time.Time) *ExportService {
	s.now = now
	return s
}

// Export writes one db-<month>-<year>-<name>.csv file per non-empty record set
// into dir and returns the written paths.
func (s *ExportService) Export(ctx context.Context, dir string) ([]string, error) {
	var (
		expenses []core.Expense
		incomes  []core.Income
		debts    []core.Debt
		totals   []core.TotalExpenses
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		expenses, err = s.store.ListExpenses(gctx)
		return wrap("list expenses", err)
	})
	g.Go(func() error {
		in, err := s.store.LatestIncome(gctx)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return wrap("get latest income", err)
		}
		incomes = []core.Income{in}
		return nil
	})
	g.Go(func() (err error) {
		debts, err = s.store.ListDebts(gctx)
		return wrap("list debts", err)
	})
	g.Go(func() (err error) {
		totals, err = s.store.ListTotals(gctx)
		return wrap("list totals", err)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("export: create dir: %w", err)
	}

	var paths []string
	for _, t := range []Table{
		ExpensesTable(expenses),
		IncomeTable(incomes),
		DebtTable(debts),
		TotalsTable(totals),
	} {
		if len(t.Rows) == 0 {
			s.logger.DebugContext(ctx, "Nothing to export", "table", t.Name)
			continue
		}
		path := filepath.Join(dir, s.fileName(t.Name, expenses))
		if err := writeFile(path, t); err != nil {
			return paths, fmt.Errorf("export %s: %w", t.Name, err)
		}
		paths = append(paths, path)
	}

	s.logger.InfoContext(ctx, "Export complete", "dir", dir, "files", len(paths))
	return paths, nil
}

// fileName uses the month of the first expense's date when the table is the
// expense table, the clock otherwise.
func (s *ExportService) fileName(name string, expenses []core.Expense) string {
	at := s.now()
	if name == "expenses" && len(expenses) > 0 && !expenses[0].Date.IsZero() {
		at = expenses[0].Date.Time
	}
	return fmt.Sprintf("db-%s-%d-%s.csv", strings.ToLower(at.Month().String()), at.Year(), name)
}

func writeFile(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func ExpensesTable(expenses []core.Expense) Table {
	t := Table{
		Name:   "expenses",
		Header: []string{"id", "created_at", "date", "description", "category", "amount", "type", "is_paid_by_kari", "is_default"},
	}
	for _, e := range expenses {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(e.ID, 10), stamp(e.CreatedAt), e.Date.String(), e.Description, string(e.Category),
			num(e.Amount), string(e.Type), strconv.FormatBool(e.PaidByPartyB), strconv.FormatBool(e.IsDefault),
		})
	}
	return t
}

func IncomeTable(incomes []core.Income) Table {
	t := Table{
		Name:   "income",
		Header: []string{"id", "created_at", "adolfo_income", "kari_income", "total_income", "adolfo_percentage", "kari_percentage"},
	}
	for _, in := range incomes {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(in.ID, 10), stamp(in.CreatedAt), num(in.PartyAIncome), num(in.PartyBIncome),
			num(in.TotalIncome), num(in.PartyAPercentage), num(in.PartyBPercentage),
		})
	}
	return t
}

func DebtTable(debts []core.Debt) Table {
	t := Table{
		Name:   "debt",
		Header: []string{"id", "created_at", "year", "month", "adolfo_debt", "kari_debt"},
	}
	for _, d := range debts {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(d.ID, 10), stamp(d.CreatedAt), strconv.Itoa(d.Year), d.Month,
			num(d.PartyADebt), num(d.PartyBDebt),
		})
	}
	return t
}

func TotalsTable(totals []core.TotalExpenses) Table {
	t := Table{
		Name:   "total_expenses",
		Header: []string{"id", "created_at", "total", "adolfo", "kari"},
	}
	for _, r := range totals {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(r.ID, 10), stamp(r.CreatedAt), num(r.Total), num(r.PartyA), num(r.PartyB),
		})
	}
	return t
}
