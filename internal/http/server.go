// Package http serves the budgeting JSON API: expense records, the
// analytics dashboard, monthly goals and user profiles.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgetcare/internal/cache"
	"budgetcare/internal/core"
	"budgetcare/internal/log"
	"budgetcare/internal/middleware/ratelimit"
	"budgetcare/internal/middleware/security"
	"budgetcare/internal/middleware/trace"
	"budgetcare/internal/services"
	"budgetcare/internal/settings"
	"budgetcare/internal/sheets"
)

// Deps are the collaborators the handlers call. Goals, Profiles, Ready and
// RawCache may be nil.
type Deps struct {
	Expenses  *services.ExpenseService
	Dashboard *services.DashboardService
	Goals     sheets.GoalStore
	Profiles  *settings.Store
	Ready     func(ctx context.Context) error
	RawCache  *cache.LRUCache[[]core.Expense]

	Logger             *log.Logger
	RateLimitPerMinute int // 0 disables rate limiting
}

type Server struct {
	http.Server
	deps Deps

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	s := &Server{
		deps:     deps,
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(deps.Logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/users/{userID}/expenses", s.handleRecordBill)
	mux.HandleFunc("GET /api/users/{userID}/expenses", s.handleListExpenses)
	mux.HandleFunc("PUT /api/users/{userID}/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/users/{userID}/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/users/{userID}/dashboard", s.handleDashboard)

	mux.HandleFunc("GET /api/users/{userID}/goals/{month}", s.handleGetGoal)
	mux.HandleFunc("PUT /api/users/{userID}/goals/{month}", s.handlePutGoal)

	mux.HandleFunc("GET /api/users/{userID}/profile", s.handleGetProfile)
	mux.HandleFunc("PATCH /api/users/{userID}/profile", s.handlePatchProfile)

	var handler http.Handler = mux
	if deps.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute})
		handler = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldPath, r.URL.Path)
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error:     "rate limit exceeded, please try again later",
				RequestID: trace.GetRequestID(r.Context()),
			})
		})(handler)
	}
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
