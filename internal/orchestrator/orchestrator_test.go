package orchestrator

import (
	"testing"

	"github.com/dbquery-gateway/gateway/internal/executor"
)

func TestSampleRowsCapsAtN(t *testing.T) {
	cols := []executor.ColumnMeta{{Name: "id"}, {Name: "name"}}
	rows := make([][]executor.Value, 5)
	for i := range rows {
		rows[i] = []executor.Value{{Tag: executor.TagInt, Raw: int64(i)}, {Tag: executor.TagText, Raw: "row"}}
	}
	result := executor.QueryResult{Columns: cols, Rows: rows, RowCount: len(rows)}

	sample := sampleRows(result, 3)
	if len(sample) != 3 {
		t.Fatalf("expected 3 sampled rows, got %d", len(sample))
	}
	if sample[0]["id"] != int64(0) {
		t.Fatalf("expected first sampled row id 0, got %v", sample[0]["id"])
	}
}

func TestSampleRowsHandlesFewerThanN(t *testing.T) {
	cols := []executor.ColumnMeta{{Name: "id"}}
	rows := [][]executor.Value{{{Tag: executor.TagInt, Raw: int64(1)}}}
	result := executor.QueryResult{Columns: cols, Rows: rows, RowCount: 1}

	sample := sampleRows(result, 20)
	if len(sample) != 1 {
		t.Fatalf("expected 1 sampled row, got %d", len(sample))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("expected unmodified short string, got %q", got)
	}
	if got := truncate("hello world", 5); got != "hello" {
		t.Fatalf("expected truncated string, got %q", got)
	}
}
