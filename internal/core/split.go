package core

import (
	"fmt"
	"time"
)

// ExpenseTotals is the split of all expenses between the two parties.
type ExpenseTotals struct {
	Total  float64 `json:"total"`
	PartyA float64 `json:"adolfo"`
	PartyB float64 `json:"kari"`
}

// DebtBalance is the net outstanding debt; at most one side is nonzero.
type DebtBalance struct {
	PartyA float64 `json:"adolfo"`
	PartyB float64 `json:"kari"`
}

// SplitExpenses divides expenses between the parties:
//
//	partyA = percentage * A% + shared / 2
//	partyB = percentage * B% + shared / 2 + partyBOnly
//
// Total is re-summed from the amounts. Templates count like any other expense.
func SplitExpenses(expenses []Expense, income Income) ExpenseTotals {
	var percentageSum, sharedSum, partyBOnlySum, total float64
	for _, e := range expenses {
		amount := SafeNumber(e.Amount)
		total += amount
		switch e.Type {
		case SharingPercentage:
			percentageSum += amount
		case SharingShared:
			sharedSum += amount
		case SharingPartyB:
			partyBOnlySum += amount
		}
	}

	partyA := percentageSum*(income.PartyAPercentage/100) + sharedSum/2
	partyB := percentageSum*(income.PartyBPercentage/100) + sharedSum/2 + partyBOnlySum

	return ExpenseTotals{
		Total:  Round2(total),
		PartyA: Round2(partyA),
		PartyB: Round2(partyB),
	}
}

// PartyBBalance is party B's share minus what party B paid. Positive means
// party A owes party B; negative means party B owes party A.
func PartyBBalance(partyBShare float64, expenses []Expense) float64 {
	var paid float64
	for _, e := range expenses {
		if !e.PaidByPartyB {
			continue
		}
		paid += SafeNumber(e.Amount)
	}
	return Round2(partyBShare - paid)
}

// SplitBalance turns a signed party B balance into a debt pair.
func SplitBalance(balance float64) (partyADebt, partyBDebt float64) {
	switch {
	case balance > 0:
		return Round2(balance), 0
	case balance < 0:
		return 0, Round2(-balance)
	}
	return 0, 0
}

// CollapseDebt sums both sides over every month and nets them out.
func CollapseDebt(debts []Debt) DebtBalance {
	var partyA, partyB float64
	for _, d := range debts {
		partyA += SafeNumber(d.PartyADebt)
		partyB += SafeNumber(d.PartyBDebt)
	}

	switch {
	case partyA > partyB:
		return DebtBalance{PartyA: Round2(partyA - partyB)}
	case partyB > partyA:
		return DebtBalance{PartyB: Round2(partyB - partyA)}
	}
	return DebtBalance{}
}

// RecomputeIncome applies a new income for one party on top of the latest
// record. The other party's income is kept, totals and percentages are
// recomputed so that the percentages sum to 100.
func RecomputeIncome(latest Income, party Party, amount float64) (Income, error) {
	if !IsFinite(amount) || amount < 0 {
		return Income{}, ErrInvalidAmount
	}

	updated := latest
	var other float64
	switch party {
	case PartyA:
		other = latest.PartyBIncome
		updated.PartyAIncome = amount
	case PartyB:
		other = latest.PartyAIncome
		updated.PartyBIncome = amount
	default:
		return Income{}, fmt.Errorf("%w: %q", ErrUnknownParty, party)
	}

	total := amount + other
	if total == 0 {
		return Income{}, ErrZeroIncome
	}
	share := Round2(amount / total * 100)
	rest := Round2(100 - share)

	updated.TotalIncome = Round2(total)
	if party == PartyA {
		updated.PartyAPercentage, updated.PartyBPercentage = share, rest
	} else {
		updated.PartyBPercentage, updated.PartyAPercentage = share, rest
	}
	return updated, nil
}

// LedgerSnapshot is the state of the ledger right after a balance sync.
type LedgerSnapshot struct {
	Totals   ExpenseTotals `json:"totals"`
	Balance  float64       `json:"balance"`
	Debt     DebtBalance   `json:"debt"`
	Month    string        `json:"month"`
	Year     int           `json:"year"`
	SyncedAt time.Time     `json:"synced_at"`
}
