package core

import "sort"

// SavingsGroup is a snapshot: every saving recorded on the same calendar day.
type SavingsGroup struct {
	DateKey   string   `json:"date_key"`
	Timestamp int64    `json:"timestamp"` // latest member timestamp, unix millis
	Savings   []Saving `json:"savings"`
}

// SavingsSummary holds per-party totals of a snapshot in the base currency.
type SavingsSummary struct {
	PartyA           float64 `json:"adolfo"`
	PartyB           float64 `json:"kari"`
	Total            float64 `json:"total"`
	PartyAPercentage float64 `json:"adolfo_percentage"`
	PartyBPercentage float64 `json:"kari_percentage"`
}

// GroupSavingsByDate groups savings by the calendar day of their creation
// timestamp, newest group first. Records keep their input order inside a group.
func GroupSavingsByDate(savings []Saving) []SavingsGroup {
	if len(savings) == 0 {
		return nil
	}

	index := make(map[string]int)
	var groups []SavingsGroup
	for _, s := range savings {
		key, ts := DateKey(s.CreatedAt)
		if i, ok := index[key]; ok {
			groups[i].Savings = append(groups[i].Savings, s)
			groups[i].Timestamp = max(groups[i].Timestamp, ts)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, SavingsGroup{DateKey: key, Timestamp: ts, Savings: []Saving{s}})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Timestamp > groups[j].Timestamp
	})
	return groups
}

// LatestSavingsGroup returns the current snapshot, or nil when there is none.
func LatestSavingsGroup(groups []SavingsGroup) *SavingsGroup {
	if len(groups) == 0 {
		return nil
	}
	return &groups[0]
}

// CalculateSavingsSummary totals savings per party in EUR. Records without a
// known party are skipped; a missing currency counts as EUR.
func CalculateSavingsSummary(savings []Saving, rates RateMap) SavingsSummary {
	var partyA, partyB float64
	for _, s := range savings {
		currency := s.Currency
		if currency == "" {
			currency = EUR
		}
		amount := ConvertToEuro(SafeNumber(s.Amount), currency, rates)

		switch s.User {
		case PartyA:
			partyA += amount
		case PartyB:
			partyB += amount
		}
	}

	total := partyA + partyB
	summary := SavingsSummary{
		PartyA: Round2(partyA),
		PartyB: Round2(partyB),
		Total:  Round2(total),
	}
	if total != 0 {
		summary.PartyAPercentage = Round2(partyA / total * 100)
		summary.PartyBPercentage = Round2(partyB / total * 100)
	}
	return summary
}
