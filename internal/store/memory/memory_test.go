package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"conti/internal/core"
	"conti/internal/store"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
}

func TestMemoryStoreExpenses(t *testing.T) {
	ctx := context.Background()
	s := New().WithClock(fixedClock)

	older, err := s.InsertExpense(ctx, core.Expense{
		Date: core.NewDate(2024, 3, 1), Description: "rent", Category: core.CategoryRent,
		Amount: 1000, Type: core.SharingPercentage,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	newer, err := s.InsertExpense(ctx, core.Expense{
		Date: core.NewDate(2024, 3, 10), Description: "food", Category: core.CategoryFood,
		Amount: 40, Type: core.SharingShared,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if older.ID == 0 || older.ID == newer.ID || !older.CreatedAt.Equal(fixedClock()) {
		t.Fatalf("unexpected ids/stamp: %+v %+v", older, newer)
	}

	list, _ := s.ListExpenses(ctx)
	if len(list) != 2 || list[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	newer.Amount = 55
	if err := s.UpdateExpense(ctx, newer); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetExpense(ctx, newer.ID)
	if got.Amount != 55 {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := s.DeleteExpense(ctx, older.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetExpense(ctx, older.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteExpense(ctx, older.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryStoreRejectsInvalidExpense(t *testing.T) {
	s := New()
	_, err := s.InsertExpense(context.Background(), core.Expense{
		Date: core.NewDate(2024, 3, 1), Description: "x", Category: core.CategoryFood,
		Amount: -1, Type: core.SharingShared,
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestMemoryStoreLatestIncome(t *testing.T) {
	ctx := context.Background()
	now := fixedClock()
	s := New().WithClock(func() time.Time { return now })

	if _, err := s.LatestIncome(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, _ = s.InsertIncome(ctx, core.Income{PartyAIncome: 1})
	now = now.Add(time.Hour)
	second, _ := s.InsertIncome(ctx, core.Income{PartyAIncome: 2})

	latest, err := s.LatestIncome(ctx)
	if err != nil || latest.ID != second.ID {
		t.Fatalf("expected latest %d, got %+v err=%v", second.ID, latest, err)
	}
}

func TestMemoryStoreDebtsByMonth(t *testing.T) {
	ctx := context.Background()
	s := New()
	d, _ := s.InsertDebt(ctx, core.Debt{Year: 2024, Month: "March", PartyADebt: 10})

	if _, err := s.FindDebt(ctx, 2023, "March"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected other year to miss, got %v", err)
	}
	found, err := s.FindDebt(ctx, 2024, "March")
	if err != nil || found.ID != d.ID {
		t.Fatalf("unexpected find: %+v %v", found, err)
	}
	found.PartyADebt = 0
	found.PartyBDebt = 5
	if err := s.UpdateDebt(ctx, found); err != nil {
		t.Fatalf("update: %v", err)
	}
	debts, _ := s.ListDebts(ctx)
	if len(debts) != 1 || debts[0].PartyBDebt != 5 {
		t.Fatalf("unexpected debts: %+v", debts)
	}
}

func TestMemoryStoreTotalsReplace(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.InsertTotals(ctx, core.ExpenseTotals{Total: 1})
	if err := s.DeleteAllTotals(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, _ = s.InsertTotals(ctx, core.ExpenseTotals{Total: 2})
	totals, _ := s.ListTotals(ctx)
	if len(totals) != 1 || totals[0].Total != 2 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestMemoryStoreSavingsByDate(t *testing.T) {
	ctx := context.Background()
	s := New().WithClock(fixedClock)

	_, err := s.InsertSavings(ctx, []core.Saving{
		{CreatedAt: "2024-03-01T09:00:00Z", User: core.PartyA, Type: core.AccountCash, Amount: 10},
		{User: core.PartyB, Type: core.AccountWise, Amount: 20, Currency: core.USD},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	all, _ := s.ListSavings(ctx)
	if len(all) != 2 || all[1].CreatedAt != "2024-03-15T10:30:00Z" {
		t.Fatalf("unexpected savings: %+v", all)
	}

	if err := s.DeleteSavingsByDate(ctx, "2024-03-01"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ = s.ListSavings(ctx)
	if len(all) != 1 || all[0].User != core.PartyB {
		t.Fatalf("expected only the March 15 saving left, got %+v", all)
	}

	if _, err := s.InsertSavings(ctx, []core.Saving{{User: "nobody", Type: core.AccountCash}}); err == nil {
		t.Fatal("expected validation error")
	}
}
