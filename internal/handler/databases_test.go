package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dbquery-gateway/gateway/internal/dbregistry"
	"github.com/dbquery-gateway/gateway/internal/handler"
	"github.com/dbquery-gateway/gateway/internal/models"
	"github.com/dbquery-gateway/gateway/internal/schema"
)

func newTestRegistry(t *testing.T) *dbregistry.Registry {
	t.Helper()
	registry := dbregistry.New()
	if err := registry.Register(dbregistry.Descriptor{Name: "orders", Dialect: dbregistry.DialectPostgres, PoolMax: 5}); err != nil {
		t.Fatal(err)
	}
	return registry
}

func TestDatabasesList(t *testing.T) {
	registry := newTestRegistry(t)
	fetches := 0
	cache := schema.NewCache(func(ctx context.Context, dbName string) (schema.Snapshot, error) {
		fetches++
		return schema.Snapshot{}, nil
	}, time.Hour)

	h := handler.NewDatabasesHandler(registry, cache)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/databases", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var infos []models.DatabaseInfo
	if err := json.NewDecoder(rr.Body).Decode(&infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Name != "orders" || infos[0].Dialect != "postgres" {
		t.Errorf("unexpected database list: %+v", infos)
	}
}

func TestDatabasesRefreshUnknown(t *testing.T) {
	registry := newTestRegistry(t)
	cache := schema.NewCache(func(ctx context.Context, dbName string) (schema.Snapshot, error) {
		return schema.Snapshot{}, nil
	}, time.Hour)

	h := handler.NewDatabasesHandler(registry, cache)

	r := chi.NewRouter()
	r.Post("/api/v1/databases/{name}/refresh", h.Refresh)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/databases/missing/refresh", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown database, got %d", rr.Code)
	}
}

func TestDatabasesRefreshInvalidatesCache(t *testing.T) {
	registry := newTestRegistry(t)
	fetches := 0
	cache := schema.NewCache(func(ctx context.Context, dbName string) (schema.Snapshot, error) {
		fetches++
		return schema.Snapshot{}, nil
	}, time.Hour)

	if _, err := cache.Get(context.Background(), "orders"); err != nil {
		t.Fatal(err)
	}
	if fetches != 1 {
		t.Fatalf("expected 1 fetch after warmup, got %d", fetches)
	}

	h := handler.NewDatabasesHandler(registry, cache)
	r := chi.NewRouter()
	r.Post("/api/v1/databases/{name}/refresh", h.Refresh)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/databases/orders/refresh", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	if _, err := cache.Get(context.Background(), "orders"); err != nil {
		t.Fatal(err)
	}
	if fetches != 2 {
		t.Errorf("expected refresh to force a second fetch, got %d", fetches)
	}
}
