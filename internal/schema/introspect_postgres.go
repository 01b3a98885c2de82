package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// IntrospectPostgres pulls the full schema tree from a PostgreSQL
// database using pg_catalog, the exact queries used by the original
// prototype's SchemaIntrospector.
func IntrospectPostgres(ctx context.Context, pool *pgxpool.Pool, dbName string) (Snapshot, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var version string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err == nil {
		if i := strings.Index(version, ","); i >= 0 {
			version = version[:i]
		}
	}

	tables, err := pgTables(ctx, conn, `c.relkind = 'r' AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')`)
	if err != nil {
		return Snapshot{}, err
	}
	views, err := pgTables(ctx, conn, `c.relkind = 'v' AND n.nspname NOT IN ('pg_catalog', 'information_schema')`)
	if err != nil {
		return Snapshot{}, err
	}
	enums, err := pgEnumTypes(ctx, conn)
	if err != nil {
		return Snapshot{}, err
	}

	all := append(tables, views...)
	for i := range all {
		cols, err := pgColumns(ctx, conn, all[i].TableName, all[i].SchemaName)
		if err != nil {
			return Snapshot{}, err
		}
		pks, err := pgPrimaryKeys(ctx, conn, all[i].TableName, all[i].SchemaName)
		if err != nil {
			return Snapshot{}, err
		}
		pkSet := make(map[string]bool, len(pks))
		for _, pk := range pks {
			pkSet[pk] = true
		}
		for j := range cols {
			if pkSet[cols[j].Name] {
				cols[j].PrimaryKey = true
			}
		}
		all[i].Columns = cols

		fks, err := pgForeignKeys(ctx, conn, all[i].TableName, all[i].SchemaName)
		if err != nil {
			return Snapshot{}, err
		}
		all[i].ForeignKeys = fks

		idxs, err := pgIndexes(ctx, conn, all[i].TableName, all[i].SchemaName)
		if err != nil {
			return Snapshot{}, err
		}
		all[i].Indexes = idxs

		// Row count estimate is best-effort: a single failed count must
		// not fail the whole snapshot.
		if est, err := pgRowCountEstimate(ctx, conn, all[i].TableName, all[i].SchemaName); err == nil {
			all[i].RowCountEstimate = &est
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].SchemaName != all[j].SchemaName {
			return all[i].SchemaName < all[j].SchemaName
		}
		return all[i].TableName < all[j].TableName
	})

	return Snapshot{DatabaseName: dbName, Tables: all, EnumTypes: enums, Version: version}, nil
}

func pgTables(ctx context.Context, conn *pgxpool.Conn, where string) ([]Table, error) {
	query := fmt.Sprintf(`
		SELECT
			n.nspname AS schema_name,
			c.relname AS table_name,
			obj_description(c.oid, 'pg_class') AS comment
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE %s
		ORDER BY n.nspname, c.relname
	`, where)
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Table
	for rows.Next() {
		var t Table
		var comment *string
		if err := rows.Scan(&t.SchemaName, &t.TableName, &comment); err != nil {
			return nil, err
		}
		if comment != nil {
			t.Comment = *comment
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func pgColumns(ctx context.Context, conn *pgxpool.Conn, tableName, schemaName string) ([]Column, error) {
	query := `
		SELECT
			a.attname AS column_name,
			pg_catalog.format_type(a.atttypid, a.atttypmod) AS data_type,
			NOT a.attnotnull AS is_nullable,
			pg_get_expr(ad.adbin, ad.adrelid) AS default_value,
			col_description(a.attrelid, a.attnum) AS comment
		FROM pg_attribute a
		JOIN pg_class c ON a.attrelid = c.oid
		JOIN pg_namespace n ON c.relnamespace = n.oid
		LEFT JOIN pg_attrdef ad ON a.attrelid = ad.adrelid AND a.attnum = ad.adnum
		WHERE c.relname = $1
		  AND n.nspname = $2
		  AND a.attnum > 0
		  AND NOT a.attisdropped
		ORDER BY a.attnum
	`
	rows, err := conn.Query(ctx, query, tableName, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var c Column
		var def, comment *string
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &def, &comment); err != nil {
			return nil, err
		}
		if def != nil {
			c.Default = *def
		}
		if comment != nil {
			c.Comment = *comment
		}
		unique, err := pgColumnUnique(ctx, conn, tableName, schemaName, c.Name)
		if err != nil {
			return nil, err
		}
		c.Unique = unique
		out = append(out, c)
	}
	return out, rows.Err()
}

func pgColumnUnique(ctx context.Context, conn *pgxpool.Conn, tableName, schemaName, columnName string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM pg_constraint con
			JOIN pg_class c ON con.conrelid = c.oid
			JOIN pg_namespace n ON c.relnamespace = n.oid
			JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(con.conkey)
			WHERE c.relname = $1
			  AND n.nspname = $2
			  AND a.attname = $3
			  AND con.contype = 'u'
		)
	`
	var exists bool
	err := conn.QueryRow(ctx, query, tableName, schemaName, columnName).Scan(&exists)
	return exists, err
}

func pgPrimaryKeys(ctx context.Context, conn *pgxpool.Conn, tableName, schemaName string) ([]string, error) {
	query := `
		SELECT a.attname AS column_name
		FROM pg_index i
		JOIN pg_class c ON i.indrelid = c.oid
		JOIN pg_namespace n ON c.relnamespace = n.oid
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(i.indkey)
		WHERE c.relname = $1
		  AND n.nspname = $2
		  AND i.indisprimary
		ORDER BY array_position(i.indkey, a.attnum)
	`
	rows, err := conn.Query(ctx, query, tableName, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func pgForeignKeys(ctx context.Context, conn *pgxpool.Conn, tableName, schemaName string) ([]ForeignKey, error) {
	query := `
		SELECT
			con.conname AS constraint_name,
			a.attname AS column_name,
			ref_c.relname AS referenced_table,
			ref_a.attname AS referenced_column
		FROM pg_constraint con
		JOIN pg_class c ON con.conrelid = c.oid
		JOIN pg_namespace n ON c.relnamespace = n.oid
		JOIN pg_attribute a
			ON a.attrelid = c.oid AND a.attnum = ANY(con.conkey)
		JOIN pg_class ref_c ON con.confrelid = ref_c.oid
		JOIN pg_attribute ref_a
			ON ref_a.attrelid = ref_c.oid
			AND ref_a.attnum = ANY(con.confkey)
		WHERE c.relname = $1
		  AND n.nspname = $2
		  AND con.contype = 'f'
		ORDER BY con.conname
	`
	rows, err := conn.Query(ctx, query, tableName, schemaName)
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

func pgIndexes(ctx context.Context, conn *pgxpool.Conn, tableName, schemaName string) ([]Index, error) {
	query := `
		SELECT
			i.relname AS index_name,
			idx.indisunique AS is_unique,
			am.amname AS index_type,
			ARRAY(
				SELECT a.attname
				FROM pg_attribute a
				WHERE a.attrelid = idx.indrelid
				  AND a.attnum = ANY(idx.indkey)
				ORDER BY array_position(idx.indkey, a.attnum)
			) AS columns
		FROM pg_index idx
		JOIN pg_class i ON i.oid = idx.indexrelid
		JOIN pg_class c ON c.oid = idx.indrelid
		JOIN pg_namespace n ON c.relnamespace = n.oid
		JOIN pg_am am ON i.relam = am.oid
		WHERE c.relname = $1
		  AND n.nspname = $2
		  AND NOT idx.indisprimary
		ORDER BY i.relname
	`
	rows, err := conn.Query(ctx, query, tableName, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Index
	for rows.Next() {
		var idx Index
		if err := rows.Scan(&idx.Name, &idx.Unique, &idx.Method, &idx.Columns); err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

func pgEnumTypes(ctx context.Context, conn *pgxpool.Conn) ([]EnumType, error) {
	query := `
		SELECT
			n.nspname AS schema_name,
			t.typname AS type_name,
			ARRAY(
				SELECT e.enumlabel
				FROM pg_enum e
				WHERE e.enumtypid = t.oid
				ORDER BY e.enumsortorder
			) AS values
		FROM pg_type t
		JOIN pg_namespace n ON t.typnamespace = n.oid
		WHERE t.typtype = 'e'
		  AND n.nspname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY n.nspname, t.typname
	`
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EnumType
	for rows.Next() {
		var e EnumType
		if err := rows.Scan(&e.SchemaName, &e.TypeName, &e.Values); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func pgRowCountEstimate(ctx context.Context, conn *pgxpool.Conn, tableName, schemaName string) (int64, error) {
	query := `
		SELECT reltuples::bigint AS estimate
		FROM pg_class c
		JOIN pg_namespace n ON c.relnamespace = n.oid
		WHERE c.relname = $1
		  AND n.nspname = $2
	`
	var estimate int64
	err := conn.QueryRow(ctx, query, tableName, schemaName).Scan(&estimate)
	return estimate, err
}
