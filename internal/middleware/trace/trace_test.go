package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"budgetcare/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(log.New(log.Config{Output: &buf}), func(*http.Request) string { return "10.0.0.1" })

	var seenID string
	var seenLogger *log.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		seenLogger = log.FromContext(r.Context())
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/u1/expenses", nil))

	if !strings.HasPrefix(seenID, "req_") || rec.Header().Get(HeaderRequestID) != seenID {
		t.Fatalf("unexpected request id %q / header %q", seenID, rec.Header().Get(HeaderRequestID))
	}
	if seenLogger == nil || seenLogger.Component() != log.ComponentTrace {
		t.Fatalf("expected request logger in context")
	}
	out := buf.String()
	if !strings.Contains(out, "request_id="+seenID) || !strings.Contains(out, "status_code=500") {
		t.Fatalf("unexpected log %q", out)
	}
	if got := m.GetMetrics(); got.TotalRequests != 1 || got.ServerErrors != 1 {
		t.Fatalf("unexpected metrics %+v", got)
	}
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	m := NewMiddleware(log.New(log.Config{Output: &bytes.Buffer{}}), nil)
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for in, keep := range map[string]bool{"abc-123": true, "bad id with spaces": false} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, in)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get(HeaderRequestID) == in; got != keep {
			t.Errorf("incoming %q kept=%v, want %v", in, got, keep)
		}
	}
}
