package http

import (
	"net/http"
	"strings"

	"budgetcare/internal/analytics"
	"budgetcare/internal/log"
	"budgetcare/internal/settings"
)

// handleDashboard serves the analytics view. Without ?window= the user's
// saved preference applies, then the server default.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.writeError(w, r, log.OpDashboard, err)
		return
	}

	profile := s.loadProfile(r, uid)
	window, err := s.dashboardWindow(r, profile)
	if err != nil {
		s.writeError(w, r, log.OpDashboard, err)
		return
	}

	view, err := s.deps.Dashboard.Build(r.Context(), uid, window)
	if err != nil {
		s.writeError(w, r, log.OpDashboard, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardResponse(view, profile))
}

// loadProfile returns nil when profiles are not configured or unreadable;
// the dashboard then uses server defaults.
func (s *Server) loadProfile(r *http.Request, uid string) *settings.Profile {
	if s.deps.Profiles == nil {
		return nil
	}
	p, err := s.deps.Profiles.Load(r.Context(), uid)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Dashboard without profile",
			log.FieldUserID, uid, log.FieldError, err)
		return nil
	}
	return &p
}

func (s *Server) dashboardWindow(r *http.Request, p *settings.Profile) (analytics.Window, error) {
	if raw := strings.TrimSpace(r.URL.Query().Get("window")); raw != "" {
		return analytics.ParseWindow(raw)
	}
	if p == nil {
		return s.deps.Dashboard.DefaultWindow(), nil
	}
	w := analytics.Window(p.Preferences.DefaultWindowDays)
	if w.Validate() != nil {
		return s.deps.Dashboard.DefaultWindow(), nil
	}
	return w, nil
}
