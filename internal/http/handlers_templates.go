package http

import (
	"net/http"

	applog "conti/internal/log"
)

// handleApplyTemplates moves the templates into the current month.
func (s *Server) handleApplyTemplates(w http.ResponseWriter, r *http.Request) {
	if s.deps.Templates == nil {
		NotFoundError("templates are not enabled").Write(w)
		return
	}
	applied, err := s.deps.Templates.ApplyTemplates(r.Context(), s.now())
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(map[string]int{"applied": applied}).Write(w)
}

// handleResetMonth clears the month's expenses and keeps the templates.
func (s *Server) handleResetMonth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Templates == nil {
		NotFoundError("templates are not enabled").Write(w)
		return
	}
	if err := s.deps.Templates.ResetMonth(r.Context(), s.now()); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	s.logger.InfoContext(r.Context(), "Month reset", applog.FieldMonth, s.now().Month().String())
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
