package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dbquery-gateway/gateway/internal/dbpool"
	"github.com/dbquery-gateway/gateway/internal/dbregistry"
	"github.com/dbquery-gateway/gateway/internal/handler"
	"github.com/dbquery-gateway/gateway/internal/models"
)

func TestHealthOK(t *testing.T) {
	registry := dbregistry.New()
	if err := registry.Register(dbregistry.Descriptor{Name: "main", Dialect: dbregistry.DialectPostgres, PoolMax: 5}); err != nil {
		t.Fatal(err)
	}
	pools := dbpool.NewManager(registry)

	h := handler.NewHealthHandler(pools)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.Health(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp models.HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected status healthy, got %q", resp.Status)
	}
	if resp.Checks["server"] != "ok" {
		t.Errorf("expected server check ok, got %q", resp.Checks["server"])
	}
}
