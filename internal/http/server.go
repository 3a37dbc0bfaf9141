// Package http exposes the ledger services as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "conti/internal/log"
	"conti/internal/middleware/ratelimit"
	"conti/internal/middleware/security"
	"conti/internal/middleware/trace"
	"conti/internal/services"
)

// Deps are the collaborators of the API. Templates, Savings, Export and
// Rates are optional; their routes answer 404 when nil.
type Deps struct {
	Balance   *services.BalanceService
	Templates *services.TemplateProcessor
	Savings   *services.SavingsService
	Export    *services.ExportService
	ExportDir string
	Rates     services.RateSource

	// Ready reports whether backing services are reachable; nil means always.
	Ready func(ctx context.Context) error

	Logger             *applog.Logger
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	deps       Deps
	logger     *applog.Logger
	structured *applog.StructuredLogger
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware
	now        func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		deps:       deps,
		logger:     logger.WithComponent(applog.ComponentHTTP),
		structured: applog.NewStructuredLogger(logger),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		detector:   security.NewDetector(),
		now:        time.Now,
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// WithClock replaces the time source used for default dates; tests only.
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	return s
}

func (s *Server) routes() http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("GET /api/totals", s.handleTotals)
	api.HandleFunc("GET /api/balance", s.handleBalance)
	api.HandleFunc("GET /api/debt", s.handleDebt)
	api.HandleFunc("POST /api/sync", s.handleSync)

	api.HandleFunc("GET /api/expenses", s.handleListExpenses)
	api.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	api.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	api.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	api.HandleFunc("GET /api/income", s.handleGetIncome)
	api.HandleFunc("POST /api/income", s.handleCreateIncome)
	api.HandleFunc("PUT /api/income", s.handleUpdateIncome)

	api.HandleFunc("POST /api/templates/apply", s.handleApplyTemplates)
	api.HandleFunc("POST /api/reset", s.handleResetMonth)

	api.HandleFunc("GET /api/savings", s.handleListSavings)
	api.HandleFunc("POST /api/savings", s.handleCreateSavings)
	api.HandleFunc("PUT /api/savings/{date}", s.handleReplaceSavings)
	api.HandleFunc("DELETE /api/savings/{date}", s.handleDeleteSavings)

	api.HandleFunc("GET /api/rates", s.handleRates)
	api.HandleFunc("POST /api/export", s.handleExport)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(api)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.Handle("/api/", limited)

	var h http.Handler = root
	h = s.detector.Middleware(s.onSuspicious)(h)
	h = s.tracer.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return h
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

func (s *Server) onSuspicious(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(applog.ComponentSecurity).WarnContext(r.Context(), "Suspicious request blocked",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path,
		applog.FieldUserAgent, r.Header.Get("User-Agent"))
	BadRequestError("bad request").Write(w)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
