package gateway

import (
	"net/http"

	"meterr-hq/io/pkg/telemetry/health"
)

// handleHealth serves GET /healthz, the liveness probe. It never touches
// the ledger; the gateway keeps proxying even with a degraded store, with
// failed writes going to the dead-letter store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health.Liveness())
}

// handleReady serves GET /readyz. It runs the component probes and
// returns 503 when any fails, so orchestrators stop routing new traffic
// while the ledger is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.health.Readiness(r.Context())
	code := http.StatusOK
	if status.Status != "ready" {
		code = http.StatusServiceUnavailable
		s.logger.WarnContext(r.Context(), "readiness probe degraded")
	}
	writeJSON(w, code, status)
}

func newHealthChecker(deps Dependencies) *health.Checker {
	checker := health.New(0)
	checker.Register("ledger", health.StoreCheck(deps.Store))
	return checker
}
