package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"conti/internal/core"
	"conti/internal/store/memory"
)

type staticRates core.RateMap

func (r staticRates) Current(context.Context) core.RateMap { return core.RateMap(r) }

func newSavings(st *memory.Store, now time.Time) *SavingsService {
	return NewSavingsService(st, staticRates{core.EUR: 1, core.USD: 1.25}, discardLogger()).WithClock(clockAt(now))
}

func TestSavingsService_SnapshotsAndSummary(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := newSavings(st, march15)

	if snaps, err := svc.Snapshots(ctx); err != nil || snaps.Current != nil || len(snaps.History) != 0 {
		t.Fatalf("expected no snapshots, got %+v err=%v", snaps, err)
	}
	if sum, err := svc.Summary(ctx); err != nil || sum != (core.SavingsSummary{}) {
		t.Fatalf("expected zero summary, got %+v err=%v", sum, err)
	}

	if _, err := svc.SaveSnapshot(ctx, "2024-02-01", []core.Saving{
		{User: core.PartyA, Type: core.AccountCash, Amount: 10},
	}); err != nil {
		t.Fatalf("SaveSnapshot(old): %v", err)
	}
	if _, err := svc.SaveSnapshot(ctx, "", []core.Saving{
		{User: core.PartyA, Type: core.AccountN26, Amount: 300},
		{User: core.PartyB, Type: core.AccountWise, Amount: 125, Currency: core.USD},
	}); err != nil {
		t.Fatalf("SaveSnapshot(today): %v", err)
	}

	snaps, err := svc.Snapshots(ctx)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if snaps.Current == nil || snaps.Current.DateKey != "2024-03-15" || len(snaps.Current.Savings) != 2 {
		t.Fatalf("unexpected current snapshot: %+v", snaps.Current)
	}
	if len(snaps.History) != 1 || snaps.History[0].DateKey != "2024-02-01" {
		t.Fatalf("unexpected history: %+v", snaps.History)
	}

	sum, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	want := core.SavingsSummary{PartyA: 300, PartyB: 100, Total: 400, PartyAPercentage: 75, PartyBPercentage: 25}
	if sum != want {
		t.Errorf("Summary() = %+v, want %+v", sum, want)
	}
}

func TestSavingsService_ReplaceSnapshot(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := newSavings(st, march15)

	_, _ = svc.SaveSnapshot(ctx, "2024-02-01", []core.Saving{
		{User: core.PartyA, Type: core.AccountCash, Amount: 10},
		{User: core.PartyB, Type: core.AccountCash, Amount: 20},
	})
	_, _ = svc.SaveSnapshot(ctx, "", []core.Saving{{User: core.PartyA, Type: core.AccountWise, Amount: 1}})

	saved, err := svc.ReplaceSnapshot(ctx, "2024-02-01", "", []core.Saving{
		{User: core.PartyB, Type: core.AccountSabadell, Amount: 42},
	})
	if err != nil {
		t.Fatalf("ReplaceSnapshot: %v", err)
	}
	if key, _ := core.DateKey(saved[0].CreatedAt); key != "2024-02-01" || saved[0].Currency != core.EUR {
		t.Fatalf("replacement must keep the original day and default to EUR, got %+v", saved[0])
	}

	snaps, _ := svc.Snapshots(ctx)
	if len(snaps.History) != 1 || len(snaps.History[0].Savings) != 1 || snaps.History[0].Savings[0].Amount != 42 {
		t.Fatalf("unexpected history after replace: %+v", snaps.History)
	}
	if snaps.Current == nil || snaps.Current.DateKey != "2024-03-15" {
		t.Fatalf("current snapshot must be untouched: %+v", snaps.Current)
	}
}

func TestSavingsService_ReplaceSnapshotMovesDay(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := newSavings(st, march15)

	_, _ = svc.SaveSnapshot(ctx, "2024-02-01", []core.Saving{
		{User: core.PartyA, Type: core.AccountCash, Amount: 10},
	})

	saved, err := svc.ReplaceSnapshot(ctx, "2024-02-01", "2024-02-10", []core.Saving{
		{User: core.PartyA, Type: core.AccountCash, Amount: 15},
		{User: core.PartyB, Type: core.AccountN26, Amount: 5, Currency: core.USD},
	})
	if err != nil {
		t.Fatalf("ReplaceSnapshot: %v", err)
	}
	for _, e := range saved {
		if key, _ := core.DateKey(e.CreatedAt); key != "2024-02-10" {
			t.Errorf("saving %d dated %s, want 2024-02-10", e.ID, key)
		}
	}

	snaps, _ := svc.Snapshots(ctx)
	if snaps.Current == nil || snaps.Current.DateKey != "2024-02-10" || len(snaps.Current.Savings) != 2 {
		t.Fatalf("unexpected current snapshot: %+v", snaps.Current)
	}
	if len(snaps.History) != 0 {
		t.Errorf("old day must be gone, history = %+v", snaps.History)
	}
}

func TestSavingsService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newSavings(memory.New(), march15)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"empty snapshot", func() error {
			_, err := svc.SaveSnapshot(ctx, "", nil)
			return err
		}, ErrEmptySnapshot},
		{"bad day", func() error {
			_, err := svc.SaveSnapshot(ctx, "15/03/2024", []core.Saving{{User: core.PartyA, Type: core.AccountCash}})
			return err
		}, core.ErrInvalidDate},
		{"unknown user", func() error {
			_, err := svc.SaveSnapshot(ctx, "", []core.Saving{{User: "bob", Type: core.AccountCash}})
			return err
		}, core.ErrUnknownParty},
		{"replace with bad key", func() error {
			_, err := svc.ReplaceSnapshot(ctx, "yesterday", "", []core.Saving{{User: core.PartyA, Type: core.AccountCash}})
			return err
		}, core.ErrInvalidDate},
		{"replace onto bad day", func() error {
			_, err := svc.ReplaceSnapshot(ctx, "2024-02-01", "10/02/2024", []core.Saving{{User: core.PartyA, Type: core.AccountCash}})
			return err
		}, core.ErrInvalidDate},
		{"delete with bad key", func() error {
			return svc.DeleteSnapshot(ctx, "")
		}, core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSavingsService_DeleteSnapshot(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := newSavings(st, march15)
	_, _ = svc.SaveSnapshot(ctx, "", []core.Saving{{User: core.PartyA, Type: core.AccountCash, Amount: 5}})

	if err := svc.DeleteSnapshot(ctx, "2024-03-15"); err != nil {
		t.Fatalf("DeleteSnapshot: %v", err)
	}
	if all, _ := st.ListSavings(ctx); len(all) != 0 {
		t.Fatalf("expected no savings left, got %+v", all)
	}
}

func TestSavingsService_NoRateSource(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := NewSavingsService(st, nil, discardLogger()).WithClock(clockAt(march15))
	_, _ = svc.SaveSnapshot(ctx, "", []core.Saving{{User: core.PartyB, Type: core.AccountWise, Amount: 50, Currency: core.USD}})

	sum, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.PartyB != 50 || sum.PartyBPercentage != 100 {
		t.Errorf("expected unconverted amount without rates, got %+v", sum)
	}
}
