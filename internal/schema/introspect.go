package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Introspect queries PostgreSQL catalogs and returns one table with its columns and PK.
func Introspect(ctx context.Context, pool *pgxpool.Pool, schemaName, tableName string) (*Table, error) {
	tbl, err := queryColumns(ctx, pool, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	if tbl == nil {
		return nil, fmt.Errorf("table %s.%s not found", schemaName, tableName)
	}

	if err := queryPrimaryKey(ctx, pool, tbl); err != nil {
		return nil, fmt.Errorf("querying primary key: %w", err)
	}

	return tbl, nil
}

func queryColumns(ctx context.Context, pool *pgxpool.Pool, schemaName, tableName string) (*Table, error) {
	query := `
		SELECT
			a.attname AS column_name,
			t.typname AS data_type,
			NOT a.attnotnull AS is_nullable,
			a.attnum AS ordinal_position
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid
		JOIN pg_type t ON t.oid = a.atttypid
		WHERE c.relkind IN ('r', 'v', 'm', 'p')
			AND a.attnum > 0
			AND NOT a.attisdropped
			AND n.nspname = $1
			AND c.relname = $2
		ORDER BY a.attnum
	`

	rows, err := pool.Query(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tbl *Table
	for rows.Next() {
		var colName, dataType string
		var nullable bool
		var ordPos int
		if err := rows.Scan(&colName, &dataType, &nullable, &ordPos); err != nil {
			return nil, err
		}
		if tbl == nil {
			tbl = &Table{Schema: schemaName, Name: tableName}
		}
		tbl.Columns = append(tbl.Columns, Column{
			Name:     colName,
			DataType: dataType,
			Nullable: nullable,
			OrdPos:   ordPos,
		})
	}

	return tbl, rows.Err()
}

func queryPrimaryKey(ctx context.Context, pool *pgxpool.Pool, tbl *Table) error {
	query := `
		SELECT
			a.attname AS column_name,
			u.ord AS key_position
		FROM pg_constraint con
		JOIN pg_class c ON c.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS u(attnum, ord)
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = u.attnum
		WHERE con.contype = 'p'
			AND n.nspname = $1
			AND c.relname = $2
		ORDER BY u.ord
	`

	rows, err := pool.Query(ctx, query, tbl.Schema, tbl.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var colName string
		var keyPos int
		if err := rows.Scan(&colName, &keyPos); err != nil {
			return err
		}
		if tbl.PrimaryKey == nil {
			tbl.PrimaryKey = &PrimaryKey{}
		}
		tbl.PrimaryKey.Columns = append(tbl.PrimaryKey.Columns, colName)
	}

	return rows.Err()
}
