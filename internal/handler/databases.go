package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dbquery-gateway/gateway/internal/dbregistry"
	"github.com/dbquery-gateway/gateway/internal/models"
	"github.com/dbquery-gateway/gateway/internal/schema"
)

// DatabasesHandler handles GET /databases and POST /databases/{name}/refresh.
type DatabasesHandler struct {
	registry *dbregistry.Registry
	cache    *schema.Cache
}

func NewDatabasesHandler(registry *dbregistry.Registry, cache *schema.Cache) *DatabasesHandler {
	return &DatabasesHandler{registry: registry, cache: cache}
}

func (h *DatabasesHandler) List(w http.ResponseWriter, r *http.Request) {
	descs := h.registry.List()
	out := make([]models.DatabaseInfo, 0, len(descs))
	for _, d := range descs {
		out = append(out, models.DatabaseInfo{Name: d.Name, Dialect: string(d.Dialect)})
	}
	models.WriteJSON(w, http.StatusOK, out)
}

// Refresh handles POST /databases/{name}/refresh: invalidates the cached
// schema snapshot so the next query picks up a fresh one.
func (h *DatabasesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := h.registry.Get(name); !ok {
		models.WriteError(w, http.StatusNotFound, "database not registered: "+name)
		return
	}
	h.cache.Invalidate(name)
	models.WriteJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "database": name})
}
