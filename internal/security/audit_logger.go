package security

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog/log"
)

// AuditLogger records query history log entries, hashing SQL text
// rather than logging it raw so audit output never carries table or
// column names.
type AuditLogger struct {
	enabled bool
}

func NewAuditLogger(enabled bool) *AuditLogger {
	return &AuditLogger{enabled: enabled}
}

func hashStr(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// LogQuery records one completed query request: its request id,
// resolved database, generated SQL (hashed), execution outcome, and
// confidence score.
func (a *AuditLogger) LogQuery(requestID, database, sql string, rowCount int, durationMs int64, success bool, errKind string, confidence *int) {
	if !a.enabled {
		return
	}
	sqlHash := hashStr(sql)
	if len(sqlHash) > 16 {
		sqlHash = sqlHash[:16]
	}

	evt := log.Info().
		Str("event", "query_audit").
		Str("request_id", requestID).
		Str("database", database).
		Str("sql_hash", sqlHash).
		Int("row_count", rowCount).
		Int64("duration_ms", durationMs).
		Bool("success", success)

	if errKind != "" {
		evt = evt.Str("error_kind", errKind)
	}
	if confidence != nil {
		evt = evt.Int("confidence", *confidence)
	}
	evt.Msg("audit")
}
