package models

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ColumnInfo describes one column in a QueryResponse's result set.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryStats breaks a query's total duration down per pipeline stage.
type QueryStats struct {
	SchemaMs   int64 `json:"schema_ms"`
	GenerateMs int64 `json:"generate_ms"`
	ValidateMs int64 `json:"validate_ms"`
	ExecuteMs  int64 `json:"execute_ms"`
	JudgeMs    int64 `json:"judge_ms"`
	Retries    int   `json:"retries"`
}

// QueryResponse is returned by POST /query.
type QueryResponse struct {
	Success      bool                     `json:"success"`
	RequestID    string                   `json:"request_id"`
	Database     string                   `json:"database,omitempty"`
	GeneratedSQL string                   `json:"generated_sql,omitempty"`
	Columns      []ColumnInfo             `json:"columns,omitempty"`
	Rows         []map[string]interface{} `json:"rows,omitempty"`
	RowCount     int                      `json:"row_count,omitempty"`
	Truncated    bool                     `json:"truncated,omitempty"`
	Confidence   *int                     `json:"confidence,omitempty"`
	Rationale    string                   `json:"confidence_rationale,omitempty"`
	ErrorCode    string                   `json:"error_code,omitempty"`
	ErrorMessage string                   `json:"error_message,omitempty"`
	DurationMs   int64                    `json:"duration_ms"`
	Stats        QueryStats               `json:"stats"`
}

// DatabaseInfo describes one registered database for GET /databases.
type DatabaseInfo struct {
	Name    string `json:"name"`
	Dialect string `json:"dialect"`
}
