package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"conti/internal/core"
	"conti/internal/store"
)

// Store keeps every record in process memory. It is safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	nextID   int64
	expenses []core.Expense
	incomes  []core.Income
	debts    []core.Debt
	totals   []core.TotalExpenses
	savings  []core.Saving
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now}
}

// WithClock replaces the clock used to stamp created_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Expense(nil), s.expenses...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, store.ErrNotFound
}

func (s *Store) InsertExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	e.CreatedAt = s.stamp()
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.expenses {
		if s.expenses[i].ID == e.ID {
			e.CreatedAt = s.expenses[i].CreatedAt
			s.expenses[i] = e
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.expenses {
		if s.expenses[i].ID == id {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) LatestIncome(_ context.Context) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.incomes) == 0 {
		return core.Income{}, store.ErrNotFound
	}
	latest := s.incomes[0]
	for _, in := range s.incomes[1:] {
		if !in.CreatedAt.Before(latest.CreatedAt) {
			latest = in
		}
	}
	return latest, nil
}

func (s *Store) InsertIncome(_ context.Context, in core.Income) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID = s.id()
	in.CreatedAt = s.stamp()
	s.incomes = append(s.incomes, in)
	return in, nil
}

func (s *Store) UpdateIncome(_ context.Context, in core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.incomes {
		if s.incomes[i].ID == in.ID {
			in.CreatedAt = s.incomes[i].CreatedAt
			s.incomes[i] = in
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListDebts(_ context.Context) ([]core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Debt(nil), s.debts...), nil
}

func (s *Store) FindDebt(_ context.Context, year int, month string) (core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.debts {
		if d.Year == year && d.Month == month {
			return d, nil
		}
	}
	return core.Debt{}, store.ErrNotFound
}

func (s *Store) InsertDebt(_ context.Context, d core.Debt) (core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.id()
	d.CreatedAt = s.stamp()
	s.debts = append(s.debts, d)
	return d, nil
}

func (s *Store) UpdateDebt(_ context.Context, d core.Debt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.debts {
		if s.debts[i].ID == d.ID {
			d.CreatedAt = s.debts[i].CreatedAt
			s.debts[i] = d
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListTotals(_ context.Context) ([]core.TotalExpenses, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.TotalExpenses(nil), s.totals...), nil
}

func (s *Store) DeleteAllTotals(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals = nil
	return nil
}

func (s *Store) InsertTotals(_ context.Context, t core.ExpenseTotals) (core.TotalExpenses, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := core.TotalExpenses{ID: s.id(), CreatedAt: s.stamp(), ExpenseTotals: t}
	s.totals = append(s.totals, rec)
	return rec, nil
}

// ListSavings returns savings in insertion order.
func (s *Store) ListSavings(_ context.Context) ([]core.Saving, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Saving(nil), s.savings...), nil
}

// InsertSavings keeps a caller-provided created_at so that a replaced
// snapshot stays on its original day.
func (s *Store) InsertSavings(_ context.Context, entries []core.Saving) ([]core.Saving, error) {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Saving, 0, len(entries))
	for _, e := range entries {
		e.ID = s.id()
		if e.CreatedAt == "" {
			e.CreatedAt = s.stamp().Format(time.RFC3339Nano)
		}
		s.savings = append(s.savings, e)
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) DeleteSavingsByDate(_ context.Context, dateKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.savings[:0]
	for _, e := range s.savings {
		if key, _ := core.DateKey(e.CreatedAt); key == dateKey {
			continue
		}
		kept = append(kept, e)
	}
	s.savings = kept
	return nil
}

func (s *Store) Close() error { return nil }
