package handler_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dbquery-gateway/gateway/internal/handler"
)

func TestQueryExecuteInvalidBody(t *testing.T) {
	h := handler.NewQueryHandler(nil, nil, nil, nil, false)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	h.Execute(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rr.Code)
	}
}

func TestQueryExecuteMissingQuestion(t *testing.T) {
	h := handler.NewQueryHandler(nil, nil, nil, nil, false)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewBufferString(`{"database":"orders"}`))
	rr := httptest.NewRecorder()
	h.Execute(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing question, got %d", rr.Code)
	}
}
