package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"budgetcare/internal/core"
	"budgetcare/internal/log"
)

var errNotConfigured = errors.New("feature not configured")

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	if s.deps.Goals == nil {
		s.writeError(w, r, log.OpRead, errNotConfigured)
		return
	}
	month := r.PathValue("month")
	if err := core.ValidateYearMonth(month); err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}

	g, err := s.deps.Goals.GetGoal(r.Context(), uid, month)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, newGoalResponse(g))
}

func (s *Server) handlePutGoal(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	if s.deps.Goals == nil {
		s.writeError(w, r, log.OpUpdate, errNotConfigured)
		return
	}
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}

	g := req.toGoal(uid, r.PathValue("month"))
	if err := g.Validate(); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := s.deps.Goals.UpsertGoal(r.Context(), g); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	stored, err := s.deps.Goals.GetGoal(r.Context(), uid, g.Month)
	if err != nil {
		stored = g
	}
	writeJSON(w, http.StatusOK, newGoalResponse(stored))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	if s.deps.Profiles == nil {
		s.writeError(w, r, log.OpRead, errNotConfigured)
		return
	}
	p, err := s.deps.Profiles.Load(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePatchProfile applies the updates in order and saves. Nothing is
// saved when any update is rejected.
func (s *Server) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	if s.deps.Profiles == nil {
		s.writeError(w, r, log.OpUpdate, errNotConfigured)
		return
	}
	var req profilePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	actions, err := req.actions()
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}

	p, err := s.deps.Profiles.Update(r.Context(), uid, actions...)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleMetrics reports request, security, rate limit and cache counters in
// the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, typ, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n", name, help, name, typ, name, value)
	}

	tm := s.tracer.GetMetrics()
	metric("http_requests_total", "counter", "Total number of HTTP requests.", tm.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status.", tm.ServerErrors)
	metric("http_last_response_seconds", "gauge", "Duration of the most recent request.",
		time.Duration(tm.LastResponseUs*int64(time.Microsecond)).Seconds())

	dm := s.detector.GetMetrics()
	metric("security_suspicious_requests_total", "counter", "Requests flagged as scans or injections.", dm.SuspiciousRequests)
	metric("security_blocked_requests_total", "counter", "Requests refused for their method.", dm.BlockedRequests)

	if s.limiter != nil {
		lm := s.limiter.GetMetrics()
		metric("ratelimit_rejected_total", "counter", "Requests refused by the rate limiter.", lm.Rejected)
		metric("ratelimit_clients", "gauge", "Clients tracked by the rate limiter.", lm.ClientCount)
	}

	if s.deps.RawCache != nil {
		cs := s.deps.RawCache.Stats()
		metric("expense_cache_hits_total", "counter", "Expense list cache hits.", cs.Hits)
		metric("expense_cache_misses_total", "counter", "Expense list cache misses.", cs.Misses)
		metric("expense_cache_entries", "gauge", "Users with a cached expense list.", cs.Size)
	}
}
