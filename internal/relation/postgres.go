package relation

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hurou927/fd-discover/internal/schema"
)

// LoadPostgres reads the columns of table into memory.
func LoadPostgres(ctx context.Context, pool *pgxpool.Pool, table *schema.Table, opts LoadOptions, log *zap.Logger) (*Table, error) {
	table = table.Without(opts.ExcludeColumns)
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns left to analyze", table.FullName())
	}

	qualified := schema.QuoteIdent(table.Schema) + "." + schema.QuoteIdent(table.Name)
	query := buildSelectQuery(qualified, table, opts)
	log.Debug("loading relation", zap.String("table", table.FullName()), zap.String("query", query))

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table.FullName(), err)
	}
	defer rows.Close()

	out := NewTable(table.FullName(), table.ColumnNames(), opts.NullEqualsNull)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", table.FullName(), err)
		}
		if err := out.Append(values...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", table.FullName(), err)
	}

	log.Info("relation loaded",
		zap.String("table", out.Name),
		zap.Int("attributes", out.NumAttributes()),
		zap.Int("tuples", out.NumTuples()))
	return out, nil
}
