package executor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func executePostgres(ctx context.Context, conn *pgxpool.Conn, sql string, statementTimeoutS, rowCap int) (QueryResult, error) {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return QueryResult{}, fmt.Errorf("begin read-only tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if statementTimeoutS > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET statement_timeout = %d", statementTimeoutS*1000)); err != nil {
			return QueryResult{}, fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]ColumnMeta, len(fields))
	for i, f := range fields {
		cols[i] = ColumnMeta{Name: string(f.Name), Type: fmt.Sprintf("oid:%d", f.DataTypeOID)}
	}

	var out [][]Value
	truncated := false
	for rows.Next() {
		if len(out) >= rowCap {
			truncated = true
			break
		}
		vals, err := rows.Values()
		if err != nil {
			return QueryResult{}, fmt.Errorf("scan row: %w", err)
		}
		row := make([]Value, len(vals))
		for i, v := range vals {
			row[i] = classifyScan(normalizePG(v))
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("row iteration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return QueryResult{}, fmt.Errorf("commit read-only tx: %w", err)
	}

	return QueryResult{Columns: cols, Rows: out, RowCount: len(out), Truncated: truncated}, nil
}

// normalizePG maps pgx values that classifyScan has no case for down to
// plain Go values. pgx decodes most scalars to native Go types directly.
// Only the [16]byte UUID form is converted here (to its hyphenated hex
// string); every other value, including pgtype.Numeric and inet/cidr
// values, is passed through unchanged to classifyScan's JSON fallback.
func normalizePG(v any) any {
	switch t := v.(type) {
	case [16]byte: // uuid
		return fmt.Sprintf("%x-%x-%x-%x-%x", t[0:4], t[4:6], t[6:8], t[8:10], t[10:16])
	default:
		return t
	}
}
