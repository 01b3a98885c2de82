package schema

import (
	"context"
	"database/sql"
	"sort"
)

// IntrospectMySQL pulls the schema tree from a MySQL database using
// information_schema. MySQL has no original-prototype analog (the
// Python service was PostgreSQL-only); this mirrors the same Snapshot
// shape and ordering rules IntrospectPostgres produces.
func IntrospectMySQL(ctx context.Context, db *sql.DB, dbName, schemaFilter string) (Snapshot, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	defer conn.Close()

	var version string
	_ = conn.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version)

	tables, err := mysqlTables(ctx, conn, schemaFilter, "BASE TABLE")
	if err != nil {
		return Snapshot{}, err
	}
	views, err := mysqlTables(ctx, conn, schemaFilter, "VIEW")
	if err != nil {
		return Snapshot{}, err
	}
	all := append(tables, views...)

	for i := range all {
		cols, err := mysqlColumns(ctx, conn, all[i].SchemaName, all[i].TableName)
		if err != nil {
			return Snapshot{}, err
		}
		all[i].Columns = cols

		fks, err := mysqlForeignKeys(ctx, conn, all[i].SchemaName, all[i].TableName)
		if err != nil {
			return Snapshot{}, err
		}
		all[i].ForeignKeys = fks

		idxs, err := mysqlIndexes(ctx, conn, all[i].SchemaName, all[i].TableName)
		if err != nil {
			return Snapshot{}, err
		}
		all[i].Indexes = idxs

		if est, err := mysqlRowCountEstimate(ctx, conn, all[i].SchemaName, all[i].TableName); err == nil {
			all[i].RowCountEstimate = &est
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].SchemaName != all[j].SchemaName {
			return all[i].SchemaName < all[j].SchemaName
		}
		return all[i].TableName < all[j].TableName
	})

	return Snapshot{DatabaseName: dbName, Tables: all, Version: version}, nil
}

func mysqlTables(ctx context.Context, conn *sql.Conn, schemaFilter, tableType string) ([]Table, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT TABLE_SCHEMA, TABLE_NAME, TABLE_COMMENT
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = ?
		ORDER BY TABLE_SCHEMA, TABLE_NAME
	`, schemaFilter, tableType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Table
	for rows.Next() {
		var t Table
		var comment string
		if err := rows.Scan(&t.SchemaName, &t.TableName, &comment); err != nil {
			return nil, err
		}
		t.Comment = comment
		out = append(out, t)
	}
	return out, rows.Err()
}

func mysqlColumns(ctx context.Context, conn *sql.Conn, schemaName, tableName string) ([]Column, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT,
		       COLUMN_KEY, COLUMN_COMMENT
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var c Column
		var nullable, columnKey string
		var def sql.NullString
		if err := rows.Scan(&c.Name, &c.DataType, &nullable, &def, &columnKey, &c.Comment); err != nil {
			return nil, err
		}
		c.Nullable = nullable == "YES"
		c.Default = def.String
		c.PrimaryKey = columnKey == "PRI"
		c.Unique = columnKey == "UNI" || columnKey == "PRI"
		out = append(out, c)
	}
	return out, rows.Err()
}

func mysqlForeignKeys(ctx context.Context, conn *sql.Conn, schemaName, tableName string) ([]ForeignKey, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY CONSTRAINT_NAME
	`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.ConstraintName, &fk.ColumnName, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, err
		}
		out = append(out, fk)
	}
	return out, rows.Err()
}

func mysqlIndexes(ctx context.Context, conn *sql.Conn, schemaName, tableName string) ([]Index, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT INDEX_NAME, NON_UNIQUE, INDEX_TYPE, COLUMN_NAME
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND INDEX_NAME != 'PRIMARY'
		ORDER BY INDEX_NAME, SEQ_IN_INDEX
	`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]*Index)
	var order []string
	for rows.Next() {
		var name, method, column string
		var nonUnique bool
		if err := rows.Scan(&name, &nonUnique, &method, &column); err != nil {
			return nil, err
		}
		idx, ok := byName[name]
		if !ok {
			idx = &Index{Name: name, Unique: !nonUnique, Method: method}
			byName[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Index, 0, len(order))
	for _, n := range order {
		out = append(out, *byName[n])
	}
	return out, nil
}

func mysqlRowCountEstimate(ctx context.Context, conn *sql.Conn, schemaName, tableName string) (int64, error) {
	var estimate int64
	err := conn.QueryRowContext(ctx, `
		SELECT TABLE_ROWS
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
	`, schemaName, tableName).Scan(&estimate)
	return estimate, err
}
