package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"conti/internal/core"
	applog "conti/internal/log"
	"conti/internal/store"
)

// ErrNoIncome is returned when an income update finds no income record to update.
var ErrNoIncome = errors.New("no income record")

// LedgerStore is the subset of the store the balance engine needs.
type LedgerStore interface {
	store.ExpenseStore
	store.IncomeStore
	store.DebtStore
	store.TotalsStore
}

// LedgerPublisher is notified after every successful balance sync.
type LedgerPublisher interface {
	PublishLedgerSynced(ctx context.Context, snap core.LedgerSnapshot) error
}

// BalanceService computes the expense split, party B's balance and the
// monthly debt ledger on top of the record store.
type BalanceService struct {
	store     LedgerStore
	publisher LedgerPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewBalanceService wires the service. publisher may be nil.
func NewBalanceService(st LedgerStore, publisher LedgerPublisher, logger *slog.Logger) *BalanceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceService{
		store:     st,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the clock used to resolve the current and previous month.
func (s *BalanceService) WithClock(now func() time.Time) *BalanceService {
	s.now = now
	return s
}

// currentIncome returns the latest income; without one, percentage expenses
// are attributed to nobody and a warning is logged.
func (s *BalanceService) currentIncome(ctx context.Context) (core.Income, error) {
	in, err := s.store.LatestIncome(ctx)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.WarnContext(ctx, "No income record, percentage expenses are not split")
		return core.Income{}, nil
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("get latest income: %w", err)
	}
	return in, nil
}

func (s *BalanceService) GetTotalExpenses(ctx context.Context) (core.ExpenseTotals, error) {
	in, err := s.currentIncome(ctx)
	if err != nil {
		return core.ExpenseTotals{}, err
	}
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return core.ExpenseTotals{}, fmt.Errorf("list expenses: %w", err)
	}
	return core.SplitExpenses(expenses, in), nil
}

// GetPartyBBalance returns what party B is owed (positive) or owes (negative).
func (s *BalanceService) GetPartyBBalance(ctx context.Context) (float64, error) {
	totals, err := s.GetTotalExpenses(ctx)
	if err != nil {
		return 0, err
	}
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list expenses: %w", err)
	}
	return core.PartyBBalance(totals.PartyB, expenses), nil
}

func (s *BalanceService) GetTotalDebt(ctx context.Context) (core.DebtBalance, error) {
	debts, err := s.store.ListDebts(ctx)
	if err != nil {
		return core.DebtBalance{}, fmt.Errorf("list debts: %w", err)
	}
	return core.CollapseDebt(debts), nil
}

// GetIncome returns the current income record or ErrNoIncome.
func (s *BalanceService) GetIncome(ctx context.Context) (core.Income, error) {
	in, err := s.store.LatestIncome(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return core.Income{}, ErrNoIncome
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("get latest income: %w", err)
	}
	return in, nil
}

// UpdateIncome sets one party's income on the latest income record, in place,
// and recomputes total and percentages from the other party's latest income.
func (s *BalanceService) UpdateIncome(ctx context.Context, party core.Party, amount float64) (core.Income, error) {
	latest, err := s.GetIncome(ctx)
	if err != nil {
		return core.Income{}, err
	}
	updated, err := core.RecomputeIncome(latest, party, amount)
	if err != nil {
		return core.Income{}, err
	}
	if err := s.store.UpdateIncome(ctx, updated); err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}

	s.logger.InfoContext(ctx, "Income updated",
		"party", party,
		"total_income", updated.TotalIncome,
		"adolfo_percentage", updated.PartyAPercentage,
		"kari_percentage", updated.PartyBPercentage)
	return updated, nil
}

// CreateIncome seeds an income record from both parties' incomes.
func (s *BalanceService) CreateIncome(ctx context.Context, partyA, partyB float64) (core.Income, error) {
	in, err := core.RecomputeIncome(core.Income{PartyBIncome: partyB}, core.PartyA, partyA)
	if err != nil {
		return core.Income{}, err
	}
	created, err := s.store.InsertIncome(ctx, in)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	return created, nil
}

func (s *BalanceService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// CreateExpense persists the expense and, unless it is a template, syncs the balance.
func (s *BalanceService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	created, err := s.store.InsertExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	if created.IsDefault {
		return created, nil
	}
	return created, s.SyncBalance(ctx, nil)
}

// UpdateExpense replaces an expense. The balance is synced unless both the
// old and the new version are templates.
func (s *BalanceService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	previous, err := s.store.GetExpense(ctx, e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", e.ID, err)
	}
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	e.CreatedAt = previous.CreatedAt
	if previous.IsDefault && e.IsDefault {
		return e, nil
	}
	return e, s.SyncBalance(ctx, nil)
}

func (s *BalanceService) DeleteExpense(ctx context.Context, id int64) error {
	previous, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("get expense %d: %w", id, err)
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if previous.IsDefault {
		return nil
	}
	return s.SyncBalance(ctx, nil)
}

// SyncBalance recomputes and persists the current totals and the debt record
// of the target month (effective, or the previous calendar month when nil).
//
// The steps run in order without a transaction; a failing step returns its
// error and leaves the writes of earlier steps in place.
func (s *BalanceService) SyncBalance(ctx context.Context, effective *time.Time) error {
	start := time.Now()

	totals, err := s.GetTotalExpenses(ctx)
	if err != nil {
		return fmt.Errorf("sync balance: totals: %w", err)
	}

	if err := s.store.DeleteAllTotals(ctx); err != nil {
		return fmt.Errorf("sync balance: clear totals: %w", err)
	}
	if _, err := s.store.InsertTotals(ctx, totals); err != nil {
		return fmt.Errorf("sync balance: insert totals: %w", err)
	}

	balance, err := s.GetPartyBBalance(ctx)
	if err != nil {
		return fmt.Errorf("sync balance: balance: %w", err)
	}

	now := s.now()
	target := core.PreviousMonth(now)
	if effective != nil {
		target = *effective
	}
	year, month := target.Year(), core.MonthLabel(target)
	partyADebt, partyBDebt := core.SplitBalance(balance)

	debt, err := s.store.FindDebt(ctx, year, month)
	switch {
	case err == nil:
		debt.PartyADebt, debt.PartyBDebt = partyADebt, partyBDebt
		if err := s.store.UpdateDebt(ctx, debt); err != nil {
			return fmt.Errorf("sync balance: update debt %s %d: %w", month, year, err)
		}
	case errors.Is(err, store.ErrNotFound):
		if year != now.Year() || target.Month() != now.Month() {
			// historical months are never backfilled
			s.logger.DebugContext(ctx, "No debt record for past month, skipping", "month", month, "year", year)
			break
		}
		if _, err := s.store.InsertDebt(ctx, core.Debt{Year: year, Month: month, PartyADebt: partyADebt, PartyBDebt: partyBDebt}); err != nil {
			return fmt.Errorf("sync balance: insert debt %s %d: %w", month, year, err)
		}
	default:
		return fmt.Errorf("sync balance: find debt %s %d: %w", month, year, err)
	}

	fields := applog.NewFields().WithOperation(applog.OpSync).WithPeriod(year, month)
	s.logger.InfoContext(ctx, "Balance synced", append(fields.ToSlice(),
		"total", totals.Total,
		"adolfo", totals.PartyA,
		"kari", totals.PartyB,
		"balance", balance,
		applog.FieldDuration, time.Since(start).Milliseconds())...)

	s.publish(ctx, core.LedgerSnapshot{
		Totals:   totals,
		Balance:  balance,
		Month:    month,
		Year:     year,
		SyncedAt: now,
	})
	return nil
}

func (s *BalanceService) publish(ctx context.Context, snap core.LedgerSnapshot) {
	if s.publisher == nil {
		return
	}
	debt, err := s.GetTotalDebt(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read debt for ledger event", "error", err)
		return
	}
	snap.Debt = debt
	if err := s.publisher.PublishLedgerSynced(ctx, snap); err != nil {
		// the sync itself succeeded
		s.logger.ErrorContext(ctx, "Failed to publish ledger event", "month", snap.Month, "error", err)
	}
}
