package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"conti/internal/core"
	"conti/internal/store"
	"conti/internal/store/memory"
)

var march15 = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type recordingPublisher struct {
	snaps []core.LedgerSnapshot
	err   error
}

func (p *recordingPublisher) PublishLedgerSynced(_ context.Context, snap core.LedgerSnapshot) error {
	p.snaps = append(p.snaps, snap)
	return p.err
}

// failingStore fails the named step and passes everything else through.
type failingStore struct {
	*memory.Store
	failOn string
}

var errBoom = errors.New("boom")

func (f *failingStore) FindDebt(ctx context.Context, year int, month string) (core.Debt, error) {
	if f.failOn == "FindDebt" {
		return core.Debt{}, errBoom
	}
	return f.Store.FindDebt(ctx, year, month)
}

func (f *failingStore) InsertTotals(ctx context.Context, t core.ExpenseTotals) (core.TotalExpenses, error) {
	if f.failOn == "InsertTotals" {
		return core.TotalExpenses{}, errBoom
	}
	return f.Store.InsertTotals(ctx, t)
}

func (f *failingStore) LatestIncome(ctx context.Context) (core.Income, error) {
	if f.failOn == "LatestIncome" {
		return core.Income{}, errBoom
	}
	return f.Store.LatestIncome(ctx)
}

func expense(desc string, amount float64, typ core.SharingType, paidByB bool) core.Expense {
	return core.Expense{
		Date:         core.NewDate(2024, 3, 10),
		Description:  desc,
		Category:     core.CategoryOther,
		Amount:       amount,
		Type:         typ,
		PaidByPartyB: paidByB,
	}
}

// seed stores a 60/40 income split and the three reference expenses:
// percentage 100, shared 50 paid by party B, party-B-only 20.
func seed(t *testing.T, st *memory.Store) {
	t.Helper()
	ctx := context.Background()
	if _, err := st.InsertIncome(ctx, core.Income{
		PartyAIncome: 3000, PartyBIncome: 2000, TotalIncome: 5000,
		PartyAPercentage: 60, PartyBPercentage: 40,
	}); err != nil {
		t.Fatalf("seed income: %v", err)
	}
	for _, e := range []core.Expense{
		expense("rent", 100, core.SharingPercentage, false),
		expense("dinner", 50, core.SharingShared, true),
		expense("gym", 20, core.SharingPartyB, false),
	} {
		if _, err := st.InsertExpense(ctx, e); err != nil {
			t.Fatalf("seed expense: %v", err)
		}
	}
}

func newBalance(st LedgerStore, pub LedgerPublisher) *BalanceService {
	return NewBalanceService(st, pub, discardLogger()).WithClock(clockAt(march15))
}

func TestBalanceService_GetTotalExpenses(t *testing.T) {
	st := memory.New()
	seed(t, st)
	svc := newBalance(st, nil)

	got, err := svc.GetTotalExpenses(context.Background())
	if err != nil {
		t.Fatalf("GetTotalExpenses: %v", err)
	}
	want := core.ExpenseTotals{Total: 170, PartyA: 85, PartyB: 85}
	if got != want {
		t.Errorf("GetTotalExpenses() = %+v, want %+v", got, want)
	}
}

func TestBalanceService_GetTotalExpensesWithoutIncome(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	_, _ = st.InsertExpense(ctx, expense("dinner", 50, core.SharingShared, false))
	_, _ = st.InsertExpense(ctx, expense("rent", 100, core.SharingPercentage, false))

	got, err := newBalance(st, nil).GetTotalExpenses(ctx)
	if err != nil {
		t.Fatalf("GetTotalExpenses: %v", err)
	}
	if got.Total != 150 || got.PartyA != 25 || got.PartyB != 25 {
		t.Errorf("unexpected totals without income: %+v", got)
	}
}

func TestBalanceService_GetPartyBBalance(t *testing.T) {
	st := memory.New()
	seed(t, st)

	got, err := newBalance(st, nil).GetPartyBBalance(context.Background())
	if err != nil {
		t.Fatalf("GetPartyBBalance: %v", err)
	}
	if got != 35 {
		t.Errorf("GetPartyBBalance() = %v, want 35", got)
	}
}

func TestBalanceService_GetTotalDebt(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	_, _ = st.InsertDebt(ctx, core.Debt{Year: 2024, Month: "January", PartyBDebt: 30})
	_, _ = st.InsertDebt(ctx, core.Debt{Year: 2024, Month: "February", PartyADebt: 50})

	got, err := newBalance(st, nil).GetTotalDebt(ctx)
	if err != nil {
		t.Fatalf("GetTotalDebt: %v", err)
	}
	if got != (core.DebtBalance{PartyA: 20}) {
		t.Errorf("GetTotalDebt() = %+v, want {PartyA:20}", got)
	}
}

func TestBalanceService_UpdateIncome(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	seeded, _ := st.InsertIncome(ctx, core.Income{PartyAIncome: 3000, PartyBIncome: 2000, TotalIncome: 5000, PartyAPercentage: 60, PartyBPercentage: 40})
	svc := newBalance(st, nil)

	got, err := svc.UpdateIncome(ctx, core.PartyB, 2500)
	if err != nil {
		t.Fatalf("UpdateIncome: %v", err)
	}
	if got.TotalIncome != 5500 || got.PartyAPercentage != 54.55 || got.PartyBPercentage != 45.45 {
		t.Errorf("unexpected income: %+v", got)
	}

	latest, _ := st.LatestIncome(ctx)
	if latest.ID != seeded.ID || latest.PartyBIncome != 2500 || latest.PartyAIncome != 3000 {
		t.Errorf("expected the latest record updated in place, got %+v", latest)
	}

	if _, err := svc.UpdateIncome(ctx, "nobody", 10); !errors.Is(err, core.ErrUnknownParty) {
		t.Errorf("expected ErrUnknownParty, got %v", err)
	}
}

func TestBalanceService_UpdateIncomeWithoutRecord(t *testing.T) {
	_, err := newBalance(memory.New(), nil).UpdateIncome(context.Background(), core.PartyA, 100)
	if !errors.Is(err, ErrNoIncome) {
		t.Fatalf("expected ErrNoIncome, got %v", err)
	}
}

func TestBalanceService_CreateIncome(t *testing.T) {
	got, err := newBalance(memory.New(), nil).CreateIncome(context.Background(), 3000, 2000)
	if err != nil {
		t.Fatalf("CreateIncome: %v", err)
	}
	if got.ID == 0 || got.TotalIncome != 5000 || got.PartyAPercentage != 60 || got.PartyBPercentage != 40 {
		t.Errorf("unexpected income: %+v", got)
	}
}

func TestBalanceService_SyncBalance(t *testing.T) {
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		existing  []core.Debt
		effective *time.Time
		wantDebts []core.Debt
	}{
		{
			name:      "previous month record is updated in place",
			existing:  []core.Debt{{Year: 2024, Month: "February", PartyBDebt: 99}},
			wantDebts: []core.Debt{{Year: 2024, Month: "February", PartyADebt: 35}},
		},
		{
			name:      "missing previous month is not backfilled",
			wantDebts: nil,
		},
		{
			name:      "explicit past month without record is not backfilled",
			effective: &jan,
			wantDebts: nil,
		},
		{
			name:      "current month without record is inserted",
			effective: &march15,
			wantDebts: []core.Debt{{Year: 2024, Month: "March", PartyADebt: 35}},
		},
		{
			name:      "same month of another year is left alone",
			existing:  []core.Debt{{Year: 2023, Month: "February", PartyBDebt: 7}},
			effective: &feb,
			wantDebts: []core.Debt{{Year: 2023, Month: "February", PartyBDebt: 7}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := memory.New()
			seed(t, st)
			for _, d := range tt.existing {
				_, _ = st.InsertDebt(ctx, d)
			}

			if err := newBalance(st, nil).SyncBalance(ctx, tt.effective); err != nil {
				t.Fatalf("SyncBalance: %v", err)
			}

			debts, _ := st.ListDebts(ctx)
			if len(debts) != len(tt.wantDebts) {
				t.Fatalf("got %d debts (%+v), want %d", len(debts), debts, len(tt.wantDebts))
			}
			for i, want := range tt.wantDebts {
				got := debts[i]
				if got.Year != want.Year || got.Month != want.Month || got.PartyADebt != want.PartyADebt || got.PartyBDebt != want.PartyBDebt {
					t.Errorf("debt %d = %+v, want %+v", i, got, want)
				}
			}

			totals, _ := st.ListTotals(ctx)
			if len(totals) != 1 || totals[0].Total != 170 {
				t.Errorf("expected one totals record of 170, got %+v", totals)
			}
		})
	}
}

func TestBalanceService_SyncBalanceLogsPeriod(t *testing.T) {
	st := memory.New()
	seed(t, st)
	var buf strings.Builder
	svc := NewBalanceService(st, nil, slog.New(slog.NewTextHandler(&buf, nil))).WithClock(clockAt(march15))

	if err := svc.SyncBalance(context.Background(), nil); err != nil {
		t.Fatalf("SyncBalance: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Balance synced", "operation=sync", "year=2024", "month=February"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}

func TestBalanceService_SyncBalanceNegativeBalance(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seed(t, st)
	_, _ = st.InsertExpense(ctx, expense("flights", 200, core.SharingShared, true))

	if err := newBalance(st, nil).SyncBalance(ctx, &march15); err != nil {
		t.Fatalf("SyncBalance: %v", err)
	}
	// party B share: 40 + 125 + 20 = 185, paid 250
	debt, err := st.FindDebt(ctx, 2024, "March")
	if err != nil {
		t.Fatalf("FindDebt: %v", err)
	}
	if debt.PartyADebt != 0 || debt.PartyBDebt != 65 {
		t.Errorf("unexpected debt: %+v", debt)
	}
}

func TestBalanceService_SyncBalancePartialFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("debt step fails after totals are written", func(t *testing.T) {
		mem := memory.New()
		seed(t, mem)
		st := &failingStore{Store: mem, failOn: "FindDebt"}

		err := newBalance(st, nil).SyncBalance(ctx, nil)
		if !errors.Is(err, errBoom) || !strings.Contains(err.Error(), "sync balance: find debt") {
			t.Fatalf("unexpected error: %v", err)
		}
		totals, _ := mem.ListTotals(ctx)
		if len(totals) != 1 {
			t.Errorf("expected totals to stay written, got %+v", totals)
		}
	})

	t.Run("insert totals fails after clearing", func(t *testing.T) {
		mem := memory.New()
		seed(t, mem)
		_, _ = mem.InsertTotals(ctx, core.ExpenseTotals{Total: 1})
		st := &failingStore{Store: mem, failOn: "InsertTotals"}

		err := newBalance(st, nil).SyncBalance(ctx, nil)
		if !errors.Is(err, errBoom) || !strings.Contains(err.Error(), "insert totals") {
			t.Fatalf("unexpected error: %v", err)
		}
		totals, _ := mem.ListTotals(ctx)
		if len(totals) != 0 {
			t.Errorf("expected totals cleared and not re-inserted, got %+v", totals)
		}
	})

	t.Run("income read fails before any write", func(t *testing.T) {
		mem := memory.New()
		st := &failingStore{Store: mem, failOn: "LatestIncome"}
		err := newBalance(st, nil).SyncBalance(ctx, nil)
		if !errors.Is(err, errBoom) || !strings.Contains(err.Error(), "sync balance: totals") {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestBalanceService_SyncBalancePublishes(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seed(t, st)
	_, _ = st.InsertDebt(ctx, core.Debt{Year: 2024, Month: "January", PartyBDebt: 10})
	pub := &recordingPublisher{err: errBoom}

	if err := newBalance(st, pub).SyncBalance(ctx, &march15); err != nil {
		t.Fatalf("publish failure must not fail the sync: %v", err)
	}
	if len(pub.snaps) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.snaps))
	}
	snap := pub.snaps[0]
	if snap.Month != "March" || snap.Year != 2024 || snap.Balance != 35 || snap.Totals.Total != 170 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if snap.Debt != (core.DebtBalance{PartyA: 25}) {
		t.Errorf("unexpected net debt: %+v", snap.Debt)
	}
}

func TestBalanceService_ExpenseMutationsSync(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seed(t, st)
	svc := newBalance(st, nil)

	tpl := expense("netflix", 15, core.SharingShared, false)
	tpl.IsDefault = true
	created, err := svc.CreateExpense(ctx, tpl)
	if err != nil {
		t.Fatalf("CreateExpense(template): %v", err)
	}
	if totals, _ := st.ListTotals(ctx); len(totals) != 0 {
		t.Fatalf("template must not trigger a sync, got %+v", totals)
	}

	if _, err := svc.CreateExpense(ctx, expense("taxi", 30, core.SharingShared, false)); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	totals, _ := st.ListTotals(ctx)
	if len(totals) != 1 || totals[0].Total != 215 {
		t.Fatalf("expected synced totals of 215 including the template, got %+v", totals)
	}

	// template -> concrete syncs, the amount was already counted
	created.IsDefault = false
	created.Amount = 25
	if _, err := svc.UpdateExpense(ctx, created); err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	totals, _ = st.ListTotals(ctx)
	if totals[0].Total != 225 {
		t.Fatalf("expected 225 after promoting the template, got %+v", totals)
	}

	if err := svc.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	totals, _ = st.ListTotals(ctx)
	if totals[0].Total != 200 {
		t.Fatalf("expected 200 after delete, got %+v", totals)
	}

	if err := svc.DeleteExpense(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.CreateExpense(ctx, core.Expense{}); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
