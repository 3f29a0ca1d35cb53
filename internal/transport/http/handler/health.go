package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	started time.Time
}

func NewHealthHandler() *HealthHandler { return &HealthHandler{started: time.Now().UTC()} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "status":
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"since":  h.started.Format(time.RFC3339),
		})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
