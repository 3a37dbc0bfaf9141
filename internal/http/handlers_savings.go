package http

import (
	"net/http"

	"conti/internal/core"
	applog "conti/internal/log"
	"conti/internal/services"
)

type savingEntry struct {
	User     core.Party       `json:"user"`
	Type     core.AccountType `json:"type"`
	Amount   Amount           `json:"amount"`
	Currency string           `json:"currency"`
}

type savingsRequest struct {
	// Date (YYYY-MM-DD) places the snapshot on a given day. Empty means today
	// on create and the unchanged day on replace.
	Date    string        `json:"date"`
	Entries []savingEntry `json:"entries"`
}

func (req savingsRequest) toSavings() ([]core.Saving, error) {
	out := make([]core.Saving, 0, len(req.Entries))
	for _, e := range req.Entries {
		s := core.Saving{User: e.User, Type: e.Type, Amount: float64(e.Amount)}
		if e.Currency != "" {
			c, err := core.ParseCurrency(e.Currency)
			if err != nil {
				return nil, err
			}
			s.Currency = c
		}
		out = append(out, s)
	}
	return out, nil
}

type savingsResponse struct {
	services.Snapshots
	Summary core.SavingsSummary `json:"summary"`
}

func (s *Server) savings(w http.ResponseWriter) (*services.SavingsService, bool) {
	if s.deps.Savings == nil {
		NotFoundError("savings are not enabled").Write(w)
		return nil, false
	}
	return s.deps.Savings, true
}

// handleListSavings returns the snapshots, newest first, with the summary of
// the current one.
func (s *Server) handleListSavings(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.savings(w)
	if !ok {
		return
	}
	snaps, err := svc.Snapshots(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	summary, err := svc.Summary(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	if snaps.History == nil {
		snaps.History = []core.SavingsGroup{}
	}
	NewJSONResponse().Body(savingsResponse{Snapshots: snaps, Summary: summary}).Write(w)
}

func (s *Server) handleCreateSavings(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.savings(w)
	if !ok {
		return
	}
	var req savingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	entries, err := req.toSavings()
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	saved, err := svc.SaveSnapshot(r.Context(), req.Date, entries)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]any{"savings": saved}).Write(w)
}

// handleReplaceSavings swaps the snapshot of {date} for the given entries,
// moved to the body's date when one is set.
func (s *Server) handleReplaceSavings(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.savings(w)
	if !ok {
		return
	}
	date, err := pathDate(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req savingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	entries, err := req.toSavings()
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	saved, err := svc.ReplaceSnapshot(r.Context(), date, req.Date, entries)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"savings": saved}).Write(w)
}

func (s *Server) handleDeleteSavings(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.savings(w)
	if !ok {
		return
	}
	date, err := pathDate(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := svc.DeleteSnapshot(r.Context(), date); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
