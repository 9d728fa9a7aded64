package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// IntrospectSQLite reads one table's columns and PK from a SQLite database.
func IntrospectSQLite(ctx context.Context, db *sql.DB, tableName string) (*Table, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", QuoteIdent(tableName))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying table info: %w", err)
	}
	defer rows.Close()

	tbl := &Table{Name: tableName}
	type pkCol struct {
		name string
		pos  int
	}
	var pkCols []pkCol
	for rows.Next() {
		var (
			cid       int
			name      string
			dataType  string
			notNull   bool
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		tbl.Columns = append(tbl.Columns, Column{
			Name:     name,
			DataType: dataType,
			Nullable: !notNull,
			OrdPos:   cid + 1,
		})
		if pk > 0 {
			pkCols = append(pkCols, pkCol{name: name, pos: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(tbl.Columns) == 0 {
		return nil, fmt.Errorf("table %s not found", tableName)
	}

	if len(pkCols) > 0 {
		sort.Slice(pkCols, func(i, j int) bool { return pkCols[i].pos < pkCols[j].pos })
		tbl.PrimaryKey = &PrimaryKey{}
		for _, c := range pkCols {
			tbl.PrimaryKey.Columns = append(tbl.PrimaryKey.Columns, c.name)
		}
	}
	return tbl, nil
}

// QuoteIdent quotes a SQL identifier with double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
