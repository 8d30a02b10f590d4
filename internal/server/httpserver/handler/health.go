package handler

import "net/http"

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{Status: "healthy", Time: h.now().UTC()})
}

// Ready handles GET /ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		h.writeError(w, r, http.StatusServiceUnavailable, "KV-SYS-5030", "not ready")
		return
	}
	h.writeJSON(w, r, http.StatusOK, HealthResponse{Status: "ready", Time: h.now().UTC()})
}
