package relation

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/hurou927/fd-discover/internal/schema"
)

// LoadSQLite reads the columns of table from a SQLite database into memory.
func LoadSQLite(ctx context.Context, db *sql.DB, table *schema.Table, opts LoadOptions, log *zap.Logger) (*Table, error) {
	table = table.Without(opts.ExcludeColumns)
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns left to analyze", table.Name)
	}

	query := buildSelectQuery(schema.QuoteIdent(table.Name), table, opts)
	log.Debug("loading relation", zap.String("table", table.Name), zap.String("query", query))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table.Name, err)
	}
	defer rows.Close()

	out := NewTable(table.Name, table.ColumnNames(), opts.NullEqualsNull)
	width := len(table.Columns)
	for rows.Next() {
		values := make([]any, width)
		ptrs := make([]any, width)
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("reading %s: %w", table.Name, err)
		}
		if err := out.Append(values...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", table.Name, err)
	}

	log.Info("relation loaded",
		zap.String("table", out.Name),
		zap.Int("attributes", out.NumAttributes()),
		zap.Int("tuples", out.NumTuples()))
	return out, nil
}
