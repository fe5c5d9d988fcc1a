package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HealthHandler serves liveness and version endpoints.
type HealthHandler struct {
	logger    *zap.Logger
	startTime time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		logger:    logger.With(zap.String("component", "health_handler")),
		startTime: time.Now(),
	}
}

// HandleHealth reports service health and uptime.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
	})
}

// HandleHealthz is the minimal liveness probe.
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleVersion reports build information.
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"version":    version,
			"build_time": buildTime,
			"git_commit": gitCommit,
		})
	}
}
