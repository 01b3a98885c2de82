package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dbquery-gateway/gateway/internal/executor"
	"github.com/dbquery-gateway/gateway/internal/models"
	"github.com/dbquery-gateway/gateway/internal/observability"
	"github.com/dbquery-gateway/gateway/internal/orchestrator"
	"github.com/dbquery-gateway/gateway/internal/security"
)

// QueryHandler handles POST /query: the single natural-language-to-SQL
// entry point.
type QueryHandler struct {
	orch    *orchestrator.Orchestrator
	masker  *security.DataMasker
	audit   *security.AuditLogger
	metrics *observability.Metrics
	mask    bool
}

func NewQueryHandler(orch *orchestrator.Orchestrator, masker *security.DataMasker, audit *security.AuditLogger, metrics *observability.Metrics, mask bool) *QueryHandler {
	return &QueryHandler{orch: orch, masker: masker, audit: audit, metrics: metrics, mask: mask}
}

func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.SetDefaults()
	if req.Question == "" {
		models.WriteError(w, http.StatusBadRequest, "question is required")
		return
	}

	start := time.Now()
	resp := h.orch.Execute(r.Context(), orchestrator.Request{
		Question:   req.Question,
		Database:   req.Database,
		ReturnType: orchestrator.ReturnType(req.ReturnType),
		Context:    req.Context,
	})
	durationMs := time.Since(start).Milliseconds()

	out := models.QueryResponse{
		Success:      resp.Success,
		RequestID:    resp.RequestID,
		Database:     resp.Database,
		GeneratedSQL: resp.GeneratedSQL,
		Confidence:   resp.Confidence.Score,
		Rationale:    resp.Confidence.Rationale,
		DurationMs:   durationMs,
		Stats: models.QueryStats{
			SchemaMs:   resp.Stats.SchemaMs,
			GenerateMs: resp.Stats.GenerateMs,
			ValidateMs: resp.Stats.ValidateMs,
			ExecuteMs:  resp.Stats.ExecuteMs,
			JudgeMs:    resp.Stats.JudgeMs,
			Retries:    resp.Stats.Retries,
		},
	}

	if resp.Data != nil {
		data := *resp.Data
		if h.mask {
			data = h.masker.Mask(data)
		}
		out.Columns = columnsFor(data)
		out.Rows = rowsFor(data)
		out.RowCount = data.RowCount
		out.Truncated = data.Truncated
	}

	status := http.StatusOK
	errKind := ""
	if resp.Error != nil {
		errKind = string(resp.Error.Kind)
		out.ErrorCode = errKind
		out.ErrorMessage = resp.Error.Message
		status = statusForError(resp.Error)
	}

	h.audit.LogQuery(resp.RequestID, resp.Database, resp.GeneratedSQL, out.RowCount, durationMs, resp.Success, errKind, resp.Confidence.Score)

	outcome := "success"
	if !resp.Success {
		outcome = "error"
	}
	h.metrics.RecordRequest(outcome)
	if resp.Database != "" {
		h.metrics.RecordExecution(resp.Database, float64(durationMs)/1000.0)
	}

	models.WriteJSON(w, status, out)
}

func columnsFor(r executor.QueryResult) []models.ColumnInfo {
	out := make([]models.ColumnInfo, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = models.ColumnInfo{Name: c.Name, Type: c.Type}
	}
	return out
}

func rowsFor(r executor.QueryResult) []map[string]interface{} {
	out := make([]map[string]interface{}, len(r.Rows))
	for i, row := range r.Rows {
		m := make(map[string]interface{}, len(row))
		for j, v := range row {
			if j < len(r.Columns) {
				m[r.Columns[j].Name] = v.Raw
			}
		}
		out[i] = m
	}
	return out
}
