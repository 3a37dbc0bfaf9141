package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"conti/internal/core"
	"conti/internal/store"
)

// ErrEmptySnapshot is returned when a snapshot without entries is saved.
var ErrEmptySnapshot = errors.New("snapshot has no entries")

// RateSource supplies the current conversion rates relative to EUR.
type RateSource interface {
	Current(ctx context.Context) core.RateMap
}

// Snapshots is the current savings snapshot plus every older one, newest first.
type Snapshots struct {
	Current *core.SavingsGroup  `json:"current"`
	History []core.SavingsGroup `json:"history"`
}

type SavingsService struct {
	store  store.SavingsStore
	rates  RateSource
	logger *slog.Logger
	now    func() time.Time
}

// NewSavingsService wires the service. Without a rate source every amount is
// taken as already in EUR.
func NewSavingsService(st store.SavingsStore, rates RateSource, logger *slog.Logger) *SavingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SavingsService{store: st, rates: rates, logger: logger, now: time.Now}
}

func (s *SavingsService) WithClock(now func() time.Time) *SavingsService {
	s.now = now
	return s
}

func (s *SavingsService) Snapshots(ctx context.Context) (Snapshots, error) {
	savings, err := s.store.ListSavings(ctx)
	if err != nil {
		return Snapshots{}, fmt.Errorf("list savings: %w", err)
	}
	groups := core.GroupSavingsByDate(savings)
	out := Snapshots{Current: core.LatestSavingsGroup(groups)}
	if len(groups) > 1 {
		out.History = groups[1:]
	}
	return out, nil
}

// Summary totals the current snapshot per party in EUR.
func (s *SavingsService) Summary(ctx context.Context) (core.SavingsSummary, error) {
	snaps, err := s.Snapshots(ctx)
	if err != nil {
		return core.SavingsSummary{}, err
	}
	if snaps.Current == nil {
		return core.SavingsSummary{}, nil
	}
	return core.CalculateSavingsSummary(snaps.Current.Savings, s.rateMap(ctx)), nil
}

func (s *SavingsService) rateMap(ctx context.Context) core.RateMap {
	if s.rates == nil {
		return core.RateMap{core.EUR: 1}
	}
	return s.rates.Current(ctx)
}

// SaveSnapshot records a new snapshot. day (YYYY-MM-DD) places it on a given
// calendar day; empty means today.
func (s *SavingsService) SaveSnapshot(ctx context.Context, day string, entries []core.Saving) ([]core.Saving, error) {
	prepared, err := s.prepare(day, entries)
	if err != nil {
		return nil, err
	}
	saved, err := s.store.InsertSavings(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	s.logger.InfoContext(ctx, "Savings snapshot saved", "date", dayOf(saved), "entries", len(saved))
	return saved, nil
}

// ReplaceSnapshot swaps every saving of originalDateKey for entries, placed on
// newDay (YYYY-MM-DD); empty newDay keeps the original day. The delete and the
// insert are separate store calls.
func (s *SavingsService) ReplaceSnapshot(ctx context.Context, originalDateKey, newDay string, entries []core.Saving) ([]core.Saving, error) {
	if !core.IsValidDateString(originalDateKey) {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidDate, originalDateKey)
	}
	if newDay == "" {
		newDay = originalDateKey
	}
	prepared, err := s.prepare(newDay, entries)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteSavingsByDate(ctx, originalDateKey); err != nil {
		return nil, fmt.Errorf("replace snapshot %s: delete: %w", originalDateKey, err)
	}
	saved, err := s.store.InsertSavings(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("replace snapshot %s: insert: %w", originalDateKey, err)
	}
	s.logger.InfoContext(ctx, "Savings snapshot replaced",
		"from", originalDateKey,
		"date", dayOf(saved),
		"entries", len(saved))
	return saved, nil
}

func (s *SavingsService) DeleteSnapshot(ctx context.Context, dateKey string) error {
	if !core.IsValidDateString(dateKey) {
		return fmt.Errorf("%w: %q", core.ErrInvalidDate, dateKey)
	}
	if err := s.store.DeleteSavingsByDate(ctx, dateKey); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", dateKey, err)
	}
	return nil
}

func (s *SavingsService) prepare(day string, entries []core.Saving) ([]core.Saving, error) {
	if len(entries) == 0 {
		return nil, ErrEmptySnapshot
	}

	now := s.now().UTC()
	stamp := now
	if day != "" {
		d, err := time.Parse(core.DateFormat, day)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", core.ErrInvalidDate, day)
		}
		stamp = time.Date(d.Year(), d.Month(), d.Day(), now.Hour(), now.Minute(), now.Second(), 0, time.UTC)
	}

	out := make([]core.Saving, 0, len(entries))
	for _, e := range entries {
		e.ID = 0
		e.CreatedAt = stamp.Format(time.RFC3339Nano)
		if e.Currency == "" {
			e.Currency = core.EUR
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func dayOf(saved []core.Saving) string {
	if len(saved) == 0 {
		return ""
	}
	key, _ := core.DateKey(saved[0].CreatedAt)
	return key
}
