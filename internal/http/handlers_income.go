package http

import (
	"net/http"

	"conti/internal/core"
	applog "conti/internal/log"
)

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	in, err := s.deps.Balance.GetIncome(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(in).Write(w)
}

type createIncomeRequest struct {
	Adolfo Amount `json:"adolfo_income"`
	Kari   Amount `json:"kari_income"`
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req createIncomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	in, err := s.deps.Balance.CreateIncome(r.Context(), float64(req.Adolfo), float64(req.Kari))
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(in).Write(w)
}

type updateIncomeRequest struct {
	Party  core.Party `json:"party"`
	Amount Amount     `json:"amount"`
}

// handleUpdateIncome sets one party's income and recomputes the split.
func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	var req updateIncomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	in, err := s.deps.Balance.UpdateIncome(r.Context(), req.Party, float64(req.Amount))
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(in).Write(w)
}
