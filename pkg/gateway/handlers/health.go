package handlers

import (
	"net/http"

	"github.com/glasscore/glasscore/pkg/gateway/drain"
)

type healthResponse struct {
	Status string `json:"status"`
}

// HealthHandler serves GET /api/health: a liveness probe that reports
// not-ready while the process is draining so a load balancer stops routing
// new connections here, without killing the in-flight SSE streams.
type HealthHandler struct {
	Drain *drain.Flag
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Drain.IsDraining() {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "draining"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
