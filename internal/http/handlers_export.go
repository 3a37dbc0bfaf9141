package http

import (
	"net/http"

	"conti/internal/core"
	applog "conti/internal/log"
)

type ratesResponse struct {
	Base  core.Currency `json:"base"`
	Rates core.RateMap  `json:"rates"`
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	rates := core.RateMap{core.BaseCurrency: 1}
	if s.deps.Rates != nil {
		rates = s.deps.Rates.Current(r.Context())
	}
	NewJSONResponse().Body(ratesResponse{Base: core.BaseCurrency, Rates: rates}).Write(w)
}

// handleExport writes the CSV files into the configured directory.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Export == nil || s.deps.ExportDir == "" {
		NotFoundError("export is not enabled").Write(w)
		return
	}
	files, err := s.deps.Export.Export(r.Context(), s.deps.ExportDir)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	if files == nil {
		files = []string{}
	}
	s.logger.WithComponent(applog.ComponentExport).InfoContext(r.Context(), "CSV export written", "files", len(files))
	NewJSONResponse().Body(map[string]any{"files": files}).Write(w)
}
