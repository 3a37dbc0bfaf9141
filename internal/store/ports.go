// Package store declares the record store the services read from and write to.
// Implementations: store/memory (in-process) and storage (SQLite).
package store

import (
	"context"
	"errors"

	"conti/internal/core"
)

// ErrNotFound is returned when a record addressed by id or key does not exist.
var ErrNotFound = errors.New("record not found")

// Ports for outbound adapters.
type (
	ExpenseStore interface {
		// ListExpenses returns every expense, newest date first.
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
		InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, id int64) error
	}

	IncomeStore interface {
		// LatestIncome returns the most recently created income record or ErrNotFound.
		LatestIncome(ctx context.Context) (core.Income, error)
		InsertIncome(ctx context.Context, in core.Income) (core.Income, error)
		UpdateIncome(ctx context.Context, in core.Income) error
	}

	DebtStore interface {
		ListDebts(ctx context.Context) ([]core.Debt, error)
		// FindDebt returns the debt record of a month or ErrNotFound.
		FindDebt(ctx context.Context, year int, month string) (core.Debt, error)
		InsertDebt(ctx context.Context, d core.Debt) (core.Debt, error)
		UpdateDebt(ctx context.Context, d core.Debt) error
	}

	TotalsStore interface {
		ListTotals(ctx context.Context) ([]core.TotalExpenses, error)
		DeleteAllTotals(ctx context.Context) error
		InsertTotals(ctx context.Context, t core.ExpenseTotals) (core.TotalExpenses, error)
	}

	SavingsStore interface {
		ListSavings(ctx context.Context) ([]core.Saving, error)
		InsertSavings(ctx context.Context, entries []core.Saving) ([]core.Saving, error)
		// DeleteSavingsByDate removes every saving created on the given YYYY-MM-DD day.
		DeleteSavingsByDate(ctx context.Context, dateKey string) error
	}

	// Store is the full record store.
	Store interface {
		ExpenseStore
		IncomeStore
		DebtStore
		TotalsStore
		SavingsStore
		Close() error
	}
)
