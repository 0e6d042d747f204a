package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/infraquery/infraquery/internal/models"
	"github.com/infraquery/infraquery/internal/store"
)

const version = "1.0.0"

// HealthHandler handles GET /health with a live store check.
type HealthHandler struct {
	store store.Store
}

func NewHealthHandler(st store.Store) *HealthHandler {
	return &HealthHandler{store: st}
}

// Health handles GET /health. The store check runs under a short timeout so
// a hung backend degrades the status instead of blocking the probe.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"server": "ok"}
	overallStatus := "healthy"

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			checks["store"] = "unavailable: " + err.Error()
			overallStatus = "degraded"
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "disabled"
	}

	statusCode := http.StatusOK
	if overallStatus == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	models.WriteJSON(w, statusCode, models.HealthResponse{
		Status:  overallStatus,
		Version: version,
		Checks:  checks,
	})
}
