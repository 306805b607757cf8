package handler

import (
	"net/http"

	"github.com/trialq/trialq/internal/service"
)

// SystemHandler reports on the server's own state: registered sources and
// their reachability.
type SystemHandler struct {
	svc *service.TrialService
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(svc *service.TrialService) *SystemHandler {
	return &SystemHandler{svc: svc}
}

type sourcesResponse struct {
	Default string   `json:"default"`
	Sources []string `json:"sources"`
}

// ListSources returns the registered source names.
// GET /api/v1/sources
func (h *SystemHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sourcesResponse{
		Default: h.svc.DefaultSource(),
		Sources: h.svc.Sources(),
	})
}

// Healthz is the liveness probe.
// GET /healthz
func (h *SystemHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz pings every source and reports 503 when any is unreachable.
// GET /readyz
func (h *SystemHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	results := h.svc.Ping(r.Context())
	if len(results) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not_ready",
			"error":  service.ErrNoSources.Error(),
		})
		return
	}

	status := http.StatusOK
	sources := make(map[string]string, len(results))
	for name, err := range results {
		if err != nil {
			sources[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		sources[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "sources": sources})
}
