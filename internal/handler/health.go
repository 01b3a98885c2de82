package handler

import (
	"net/http"

	"github.com/dbquery-gateway/gateway/internal/dbpool"
	"github.com/dbquery-gateway/gateway/internal/models"
)

const version = "1.0.0"

// HealthHandler handles GET /health.
type HealthHandler struct {
	pools *dbpool.Manager
}

func NewHealthHandler(pools *dbpool.Manager) *HealthHandler {
	return &HealthHandler{pools: pools}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"server": "ok"}
	for _, stat := range h.pools.Stats() {
		checks[stat.Name] = "ok"
	}

	models.WriteJSON(w, http.StatusOK, models.HealthResponse{
		Status:  "healthy",
		Version: version,
		Checks:  checks,
	})
}
