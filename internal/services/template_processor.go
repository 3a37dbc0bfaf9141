package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"conti/internal/core"
)

// TemplateProcessor keeps recurring template expenses (IsDefault) in the
// current month. Templates count toward the totals like any other expense;
// applying them only moves their date.
type TemplateProcessor struct {
	store   LedgerStore
	balance *BalanceService
	logger  *slog.Logger
}

func NewTemplateProcessor(balance *BalanceService) *TemplateProcessor {
	return &TemplateProcessor{
		store:   balance.store,
		balance: balance,
		logger:  balance.logger,
	}
}

// ApplyTemplates re-dates every template outside the month of now onto its
// day of month in that month and returns how many moved. Amounts are
// untouched, so no balance sync is needed.
func (p *TemplateProcessor) ApplyTemplates(ctx context.Context, now time.Time) (int, error) {
	expenses, err := p.store.ListExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list expenses: %w", err)
	}

	moved, templates := 0, 0
	for _, e := range expenses {
		if !e.IsDefault {
			continue
		}
		templates++
		if sameMonth(e.Date.Time, now) {
			continue
		}

		from := e.Date
		e.Date = dueDate(e.Date.Day(), now)
		if err := p.store.UpdateExpense(ctx, e); err != nil {
			return moved, fmt.Errorf("apply template %d: %w", e.ID, err)
		}
		moved++

		p.logger.InfoContext(ctx, "Template applied",
			"template_id", e.ID,
			"description", e.Description,
			"from", from.String(),
			"date", e.Date.String())
	}

	p.logger.InfoContext(ctx, "Template processing complete",
		"applied", moved,
		"templates", templates)
	return moved, nil
}

// ResetMonth deletes every non-template expense, moves the templates into the
// month of now and syncs the balance.
func (p *TemplateProcessor) ResetMonth(ctx context.Context, now time.Time) error {
	expenses, err := p.store.ListExpenses(ctx)
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}
	deleted := 0
	for _, e := range expenses {
		if e.IsDefault {
			continue
		}
		if err := p.store.DeleteExpense(ctx, e.ID); err != nil {
			return fmt.Errorf("delete expense %d: %w", e.ID, err)
		}
		deleted++
	}
	p.logger.InfoContext(ctx, "Month reset", "deleted", deleted)

	if _, err := p.ApplyTemplates(ctx, now); err != nil {
		return err
	}
	return p.balance.SyncBalance(ctx, nil)
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// dueDate places day in the month of now, clamped to the month's last day
// (a template on the 31st lands on Feb 28/29).
func dueDate(day int, now time.Time) core.Date {
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	if day < 1 {
		day = 1
	}
	return core.NewDate(now.Year(), int(now.Month()), day)
}
