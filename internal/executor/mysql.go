package executor

import (
	"context"
	"database/sql"
	"fmt"
)

// executeMySQL runs the query in a read-only transaction: the session is
// put into read-only mode explicitly before BEGIN, and the transaction
// itself is opened with sql.TxOptions{ReadOnly: true}.
func executeMySQL(ctx context.Context, conn *sql.Conn, query string, statementTimeoutS, rowCap int) (QueryResult, error) {
	if _, err := conn.ExecContext(ctx, "SET SESSION TRANSACTION READ ONLY"); err != nil {
		return QueryResult{}, fmt.Errorf("set session read only: %w", err)
	}
	if statementTimeoutS > 0 {
		stmt := fmt.Sprintf("SET SESSION MAX_EXECUTION_TIME=%d", statementTimeoutS*1000)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return QueryResult{}, fmt.Errorf("set max_execution_time: %w", err)
		}
	}

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return QueryResult{}, fmt.Errorf("begin read-only tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return QueryResult{}, fmt.Errorf("columns: %w", err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return QueryResult{}, fmt.Errorf("column types: %w", err)
	}
	cols := make([]ColumnMeta, len(colNames))
	for i, n := range colNames {
		cols[i] = ColumnMeta{Name: n, Type: colTypes[i].DatabaseTypeName()}
	}

	var out [][]Value
	truncated := false
	for rows.Next() {
		if len(out) >= rowCap {
			truncated = true
			break
		}
		scanTargets := make([]any, len(colNames))
		for i := range scanTargets {
			scanTargets[i] = new(any)
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return QueryResult{}, fmt.Errorf("scan row: %w", err)
		}
		row := make([]Value, len(scanTargets))
		for i, t := range scanTargets {
			row[i] = classifyScan(*(t.(*any)))
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("row iteration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return QueryResult{}, fmt.Errorf("commit read-only tx: %w", err)
	}

	return QueryResult{Columns: cols, Rows: out, RowCount: len(out), Truncated: truncated}, nil
}
