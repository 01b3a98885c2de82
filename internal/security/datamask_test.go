package security

import (
	"testing"

	"github.com/dbquery-gateway/gateway/internal/executor"
)

func TestMaskRedactsEmailColumn(t *testing.T) {
	m := NewDataMasker(nil)
	result := executor.QueryResult{
		Columns: []executor.ColumnMeta{{Name: "email"}, {Name: "id"}},
		Rows: [][]executor.Value{
			{{Tag: executor.TagText, Raw: "john.doe@example.com"}, {Tag: executor.TagInt, Raw: int64(1)}},
		},
	}
	masked := m.Mask(result)
	if masked.Rows[0][0].Raw == "john.doe@example.com" {
		t.Fatal("expected email column to be masked")
	}
	if masked.Rows[0][1].Raw != int64(1) {
		t.Fatal("expected non-sensitive column to be untouched")
	}
}

func TestMaskLeavesNonSensitiveResultUnchanged(t *testing.T) {
	m := NewDataMasker(nil)
	result := executor.QueryResult{
		Columns: []executor.ColumnMeta{{Name: "count"}},
		Rows:    [][]executor.Value{{{Tag: executor.TagInt, Raw: int64(42)}}},
	}
	masked := m.Mask(result)
	if masked.Rows[0][0].Raw != int64(42) {
		t.Fatal("expected untouched value for non-sensitive column")
	}
}

func TestMaskCustomSensitiveColumn(t *testing.T) {
	m := NewDataMasker([]string{"internal_notes"})
	result := executor.QueryResult{
		Columns: []executor.ColumnMeta{{Name: "internal_notes"}},
		Rows:    [][]executor.Value{{{Tag: executor.TagText, Raw: "sensitive detail"}}},
	}
	masked := m.Mask(result)
	if masked.Rows[0][0].Raw == "sensitive detail" {
		t.Fatal("expected custom sensitive column to be masked")
	}
}
