// Package executor runs a validated, read-only query against a
// borrowed connection and serializes the result into the gateway's
// canonical row representation.
package executor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dbquery-gateway/gateway/internal/dbpool"
	"github.com/dbquery-gateway/gateway/internal/dbregistry"
	"github.com/dbquery-gateway/gateway/internal/errs"
	"github.com/dbquery-gateway/gateway/internal/sqlsafety"
)

// Tag names the gateway's canonical, driver-independent scalar types.
// classifyScan maps values from either driver onto these tags instead
// of collapsing everything to JSON primitives.
type Tag string

const (
	TagInt       Tag = "int"
	TagFloat     Tag = "float"
	TagBool      Tag = "bool"
	TagText      Tag = "text"
	TagBytes     Tag = "bytes"
	TagTimestamp Tag = "timestamp"
	TagDate      Tag = "date"
	TagJSON      Tag = "json"
	TagNull      Tag = "null"
	TagUnknown   Tag = "unknown"
)

type Value struct {
	Tag Tag
	Raw any
}

type ColumnMeta struct {
	Name string
	Type string
}

// QueryResult is a column header followed by canonically-tagged rows,
// with Truncated set when the row cap clipped the result.
type QueryResult struct {
	Columns   []ColumnMeta
	Rows      [][]Value
	RowCount  int
	Truncated bool
	Duration  time.Duration
}

type Executor struct {
	pools *dbpool.Manager
}

func New(pools *dbpool.Manager) *Executor {
	return &Executor{pools: pools}
}

// Execute acquires a connection, opens a read-only transaction, sets
// the statement timeout, runs the query fetching one row beyond the
// cap to detect truncation, and releases the connection on return.
func (e *Executor) Execute(ctx context.Context, dbName string, sql_ sqlsafety.ValidatedSQL, dialect dbregistry.Dialect, statementTimeoutS, rowCap int) (QueryResult, *errs.Error) {
	conn, gerr := e.pools.Acquire(ctx, dbName)
	if gerr != nil {
		return QueryResult{}, gerr
	}
	defer e.pools.Release(conn)

	start := time.Now()
	var (
		result QueryResult
		err    error
	)
	switch dialect {
	case dbregistry.DialectPostgres:
		result, err = executePostgres(ctx, conn.PG, sql_.String(), statementTimeoutS, rowCap)
	case dbregistry.DialectMySQL:
		result, err = executeMySQL(ctx, conn.SQL, sql_.String(), statementTimeoutS, rowCap)
	default:
		return QueryResult{}, errs.New(errs.KindInternalError, "unknown dialect in executor")
	}
	result.Duration = time.Since(start)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return QueryResult{}, errs.Wrap(errs.KindTimeout, err, "query execution timed out")
		}
		return QueryResult{}, errs.Wrap(errs.KindDBError, err, "query execution failed")
	}
	return result, nil
}

func jsonTag(v any) (Tag, any) {
	b, err := json.Marshal(v)
	if err != nil {
		return TagUnknown, fmt.Sprintf("%v", v)
	}
	return TagJSON, json.RawMessage(b)
}

// classifyScan turns a database/sql-or-pgx-scanned Go value into a
// canonical tagged Value, normalizing driver-specific representations
// the way the original's _serialize_results normalizes datetime,
// Decimal, UUID, and bytes values.
func classifyScan(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{Tag: TagNull}
	case bool:
		return Value{Tag: TagBool, Raw: t}
	case int64:
		return Value{Tag: TagInt, Raw: t}
	case int32:
		return Value{Tag: TagInt, Raw: int64(t)}
	case float64:
		return Value{Tag: TagFloat, Raw: t}
	case float32:
		return Value{Tag: TagFloat, Raw: float64(t)}
	case string:
		return Value{Tag: TagText, Raw: t}
	case []byte:
		return Value{Tag: TagBytes, Raw: t}
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return Value{Tag: TagDate, Raw: t.Format("2006-01-02")}
		}
		return Value{Tag: TagTimestamp, Raw: t.Format(time.RFC3339Nano)}
	case sql.NullString:
		if !t.Valid {
			return Value{Tag: TagNull}
		}
		return Value{Tag: TagText, Raw: t.String}
	case sql.NullInt64:
		if !t.Valid {
			return Value{Tag: TagNull}
		}
		return Value{Tag: TagInt, Raw: t.Int64}
	case sql.NullFloat64:
		if !t.Valid {
			return Value{Tag: TagNull}
		}
		return Value{Tag: TagFloat, Raw: t.Float64}
	case sql.NullBool:
		if !t.Valid {
			return Value{Tag: TagNull}
		}
		return Value{Tag: TagBool, Raw: t.Bool}
	case sql.NullTime:
		if !t.Valid {
			return Value{Tag: TagNull}
		}
		return classifyScan(t.Time)
	default:
		tag, raw := jsonTag(v)
		return Value{Tag: tag, Raw: raw}
	}
}
