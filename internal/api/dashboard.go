package api

import (
	_ "embed"
	"net/http"
)

//go:embed ui/index.html
var dashboardHTML []byte

// handleDashboard serves the static shell at the root. The page polls
// GET /events on a timer and keeps its last successful render when a poll
// fails, so a storage outage degrades to stale data instead of a blank page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(dashboardHTML)
}
