package http

import (
	"net/http"
	"strings"

	"conti/internal/core"
	applog "conti/internal/log"
)

type expenseRequest struct {
	Date        core.Date        `json:"date"`
	Description string           `json:"description"`
	Category    core.Category    `json:"category"`
	Amount      Amount           `json:"amount"`
	Currency    string           `json:"currency"`
	Type        core.SharingType `json:"type"`
	PaidByKari  bool             `json:"is_paid_by_kari"`
	IsDefault   bool             `json:"is_default"`
}

// toExpense builds the stored record. Amounts are stored in USD; an amount
// given in EUR is converted with the current rates. A missing date is today.
func (s *Server) toExpense(r *http.Request, req expenseRequest) (core.Expense, error) {
	e := core.Expense{
		Date:         req.Date,
		Description:  sanitizeInput(req.Description),
		Category:     req.Category,
		Amount:       float64(req.Amount),
		Type:         req.Type,
		PaidByPartyB: req.PaidByKari,
		IsDefault:    req.IsDefault,
	}
	if e.Date.IsZero() {
		e.Date = core.DateOf(s.now())
	}

	if strings.TrimSpace(req.Currency) != "" {
		currency, err := core.ParseCurrency(req.Currency)
		if err != nil {
			return core.Expense{}, err
		}
		if core.NeedsConversion(currency, core.USD) {
			rates := core.RateMap{core.EUR: 1}
			if s.deps.Rates != nil {
				rates = s.deps.Rates.Current(r.Context())
			}
			e.Amount = core.Round2(core.Convert(e.Amount, currency, core.USD, rates))
		}
	}
	return e, e.Validate()
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.deps.Balance.ListExpenses(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	NewJSONResponse().Body(map[string]any{"expenses": expenses}).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	e, err := s.toExpense(r, req)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	created, err := s.deps.Balance.CreateExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	s.structured.LogExpense(r.Context(), applog.OpCreate, created.ID, created.Description, created.Amount, string(created.Category), string(created.Type))
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	e, err := s.toExpense(r, req)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	e.ID = id

	updated, err := s.deps.Balance.UpdateExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.structured.LogExpense(r.Context(), applog.OpUpdate, updated.ID, updated.Description, updated.Amount, string(updated.Category), string(updated.Type))
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.deps.Balance.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	s.structured.LogExpense(r.Context(), applog.OpDelete, id, "", 0, "", "")
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
