// Package schema holds the canonical, driver-independent schema tree and
// its TTL/single-flight cache.
package schema

import (
	"fmt"
	"strings"
)

type Column struct {
	Name       string
	DataType   string
	Nullable   bool
	PrimaryKey bool
	Unique     bool
	Default    string
	Comment    string
}

func (c Column) promptLine() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  - %s: %s", c.Name, c.DataType)
	var flags []string
	if c.PrimaryKey {
		flags = append(flags, "PRIMARY KEY")
	}
	if c.Unique && !c.PrimaryKey {
		flags = append(flags, "UNIQUE")
	}
	if !c.Nullable {
		flags = append(flags, "NOT NULL")
	}
	if c.Default != "" {
		flags = append(flags, "DEFAULT "+c.Default)
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(flags, ", "))
	}
	if c.Comment != "" {
		fmt.Fprintf(&b, " -- %s", c.Comment)
	}
	return b.String()
}

type ForeignKey struct {
	ConstraintName   string
	ColumnName       string
	ReferencedTable  string
	ReferencedColumn string
}

func (fk ForeignKey) promptLine() string {
	return fmt.Sprintf("  - %s -> %s.%s", fk.ColumnName, fk.ReferencedTable, fk.ReferencedColumn)
}

type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Method  string
}

func (idx Index) promptLine() string {
	prefix := ""
	if idx.Unique {
		prefix = "UNIQUE "
	}
	method := idx.Method
	if method == "" {
		method = "btree"
	}
	return fmt.Sprintf("  - %s%s INDEX on (%s)", prefix, strings.ToUpper(method), strings.Join(idx.Columns, ", "))
}

type Table struct {
	SchemaName       string
	TableName        string
	Columns          []Column
	ForeignKeys      []ForeignKey
	Indexes          []Index
	Comment          string
	RowCountEstimate *int64
}

func (t Table) FullName() string {
	return t.SchemaName + "." + t.TableName
}

func (t Table) promptSection() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nTable: %s\n", t.FullName())
	if t.Comment != "" {
		fmt.Fprintf(&b, "Description: %s\n", t.Comment)
	}
	if t.RowCountEstimate != nil {
		fmt.Fprintf(&b, "Approximate rows: %d\n", *t.RowCountEstimate)
	}
	b.WriteString("\nColumns:\n")
	for _, c := range t.Columns {
		b.WriteString(c.promptLine())
		b.WriteString("\n")
	}
	if len(t.ForeignKeys) > 0 {
		b.WriteString("\nForeign Keys:\n")
		for _, fk := range t.ForeignKeys {
			b.WriteString(fk.promptLine())
			b.WriteString("\n")
		}
	}
	if len(t.Indexes) > 0 {
		b.WriteString("\nIndexes:\n")
		for _, idx := range t.Indexes {
			b.WriteString(idx.promptLine())
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

type EnumType struct {
	SchemaName string
	TypeName   string
	Values     []string
}

func (e EnumType) FullName() string { return e.SchemaName + "." + e.TypeName }

func (e EnumType) promptLine() string {
	quoted := make([]string, len(e.Values))
	for i, v := range e.Values {
		quoted[i] = "'" + v + "'"
	}
	return fmt.Sprintf("  - %s: %s", e.TypeName, strings.Join(quoted, ", "))
}

// Snapshot is a value-typed, immutable canonical tree of schemas,
// tables, and columns.
type Snapshot struct {
	DatabaseName string
	Tables       []Table
	EnumTypes    []EnumType
	Version      string
}

func (s Snapshot) Table(schemaName, tableName string) (Table, bool) {
	for _, t := range s.Tables {
		if t.SchemaName == schemaName && t.TableName == tableName {
			return t, true
		}
	}
	return Table{}, false
}

// ToPromptContext renders the full schema for inclusion in an LLM prompt.
func (s Snapshot) ToPromptContext() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Database: %s\n", s.DatabaseName)
	if s.Version != "" {
		fmt.Fprintf(&b, "Version: %s\n", s.Version)
	}
	if len(s.EnumTypes) > 0 {
		b.WriteString("\n=== Custom Types ===\n")
		for _, e := range s.EnumTypes {
			b.WriteString(e.promptLine())
			b.WriteString("\n")
		}
	}
	if len(s.Tables) > 0 {
		b.WriteString("\n=== Tables ===\n")
		for _, t := range s.Tables {
			b.WriteString(t.promptSection())
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
