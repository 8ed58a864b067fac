package handlers

import (
	"net/http"

	"github.com/theblitlabs/tinyml-runner/internal/monitoring/health"
)

type HealthResponse struct {
	Status     string                   `json:"status"`
	Components []health.ComponentHealth `json:"components,omitempty"`
}

type HealthHandler struct {
	checker *health.Checker
}

// NewHealthHandler reports the components tracked by checker. A nil checker
// always answers ok.
func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Health runs every check when ?full=true is given and otherwise reports the
// last known results.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	var components []health.ComponentHealth
	if r.URL.Query().Get("full") == "true" {
		components = h.checker.CheckAll(r.Context())
	} else {
		components = h.checker.GetAllHealth()
	}

	if !h.checker.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Components: components})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Components: components})
}
