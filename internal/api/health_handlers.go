package api

import "net/http"

type healthBody struct {
	Status string `json:"status"`
}

// handleHealth is the coarse liveness/readiness probe combined, matching
// what a load balancer typically polls.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{Status: "ok"})
}

// handleHealthReady checks the dependency this process cannot serve
// traffic without: the store's connection pool.
func (s *Server) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}

	writeJSON(w, http.StatusOK, healthBody{Status: "ready"})
}

// handleHealthLive reports process liveness only — no dependency checks,
// so a slow database never trips a container orchestrator's restart loop.
func (s *Server) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{Status: "live"})
}
