package executor

import (
	"database/sql"
	"testing"
	"time"
)

func TestClassifyScanPrimitives(t *testing.T) {
	cases := []struct {
		name string
		in   any
		tag  Tag
	}{
		{"nil", nil, TagNull},
		{"bool", true, TagBool},
		{"int64", int64(42), TagInt},
		{"float64", 3.14, TagFloat},
		{"string", "hi", TagText},
		{"bytes", []byte("raw"), TagBytes},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := classifyScan(c.in)
			if v.Tag != c.tag {
				t.Fatalf("expected tag %s, got %s", c.tag, v.Tag)
			}
		})
	}
}

func TestClassifyScanTimestampVsDate(t *testing.T) {
	midnight := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	if v := classifyScan(midnight); v.Tag != TagDate {
		t.Fatalf("expected date tag for midnight time, got %s", v.Tag)
	}
	withTime := time.Date(2026, 1, 2, 13, 30, 0, 0, time.UTC)
	if v := classifyScan(withTime); v.Tag != TagTimestamp {
		t.Fatalf("expected timestamp tag, got %s", v.Tag)
	}
}

func TestClassifyScanNullWrappers(t *testing.T) {
	if v := classifyScan(sql.NullString{Valid: false}); v.Tag != TagNull {
		t.Fatalf("expected null tag for invalid NullString, got %s", v.Tag)
	}
	if v := classifyScan(sql.NullString{Valid: true, String: "x"}); v.Tag != TagText {
		t.Fatalf("expected text tag for valid NullString, got %s", v.Tag)
	}
}
