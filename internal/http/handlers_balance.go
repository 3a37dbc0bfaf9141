package http

import (
	"net/http"
	"time"

	"conti/internal/core"
	applog "conti/internal/log"
)

type totalsResponse struct {
	core.ExpenseTotals
	Formatted map[string]string `json:"formatted"`
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.deps.Balance.GetTotalExpenses(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(totalsResponse{
		ExpenseTotals: totals,
		Formatted: map[string]string{
			"total":  core.FormatCurrency(totals.Total, core.USD),
			"adolfo": core.FormatCurrency(totals.PartyA, core.USD),
			"kari":   core.FormatCurrency(totals.PartyB, core.USD),
		},
	}).Write(w)
}

type balanceResponse struct {
	Balance float64          `json:"balance"`
	Debt    core.DebtBalance `json:"debt"`
}

// handleBalance returns party B's live balance and the debt it implies.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.deps.Balance.GetPartyBBalance(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	a, b := core.SplitBalance(balance)
	NewJSONResponse().Body(balanceResponse{
		Balance: balance,
		Debt:    core.DebtBalance{PartyA: a, PartyB: b},
	}).Write(w)
}

func (s *Server) handleDebt(w http.ResponseWriter, r *http.Request) {
	debt, err := s.deps.Balance.GetTotalDebt(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(debt).Write(w)
}

type syncResponse struct {
	Month string `json:"month"`
	Year  int    `json:"year"`
}

// handleSync recomputes the balance for ?year=&month=, defaulting to the
// previous calendar month.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpSync, err)
		return
	}

	var effective *time.Time
	target := core.PreviousMonth(s.now())
	if params.Set {
		target = params.Time()
		effective = &target
	}

	if err := s.deps.Balance.SyncBalance(r.Context(), effective); err != nil {
		writeError(w, r, applog.OpSync, err)
		return
	}
	NewJSONResponse().Body(syncResponse{Month: core.MonthLabel(target), Year: target.Year()}).Write(w)
}
