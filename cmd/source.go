package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hurou927/fd-discover/internal/config"
	"github.com/hurou927/fd-discover/internal/db"
	"github.com/hurou927/fd-discover/internal/relation"
	"github.com/hurou927/fd-discover/internal/schema"
)

// loadRelation reads the configured source into memory.
func loadRelation(ctx context.Context, src *config.Source, log *zap.Logger) (*relation.Table, error) {
	opts := relation.LoadOptions{
		Where:          src.Where,
		Limit:          src.Limit,
		ExcludeColumns: src.ExcludeSet(),
		NullEqualsNull: src.NullsEqual(),
	}

	switch src.Type {
	case config.SourcePostgres:
		pool, err := db.NewPool(ctx, &src.Connection, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		schemaName, tableName := src.SchemaAndTable()
		table, err := schema.Introspect(ctx, pool, schemaName, tableName)
		if err != nil {
			return nil, fmt.Errorf("introspecting table: %w", err)
		}
		return relation.LoadPostgres(ctx, pool, table, opts, log)

	case config.SourceSQLite:
		conn, err := db.OpenSQLite(ctx, src.Path)
		if err != nil {
			return nil, err
		}
		defer conn.Close()

		table, err := schema.IntrospectSQLite(ctx, conn, src.Table)
		if err != nil {
			return nil, fmt.Errorf("introspecting table: %w", err)
		}
		return relation.LoadSQLite(ctx, conn, table, opts, log)

	case config.SourceCSV:
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, fmt.Errorf("opening csv file: %w", err)
		}
		defer f.Close()

		name := src.Table
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))
		}
		var comma rune
		if src.CSV.Delimiter != "" {
			comma = []rune(src.CSV.Delimiter)[0]
		}
		rel, err := relation.ReadCSV(f, relation.CSVOptions{
			Name:           name,
			Comma:          comma,
			NoHeader:       src.CSV.NoHeader,
			NullTokens:     src.CSV.NullTokens,
			NullEqualsNull: opts.NullEqualsNull,
			ExcludeColumns: opts.ExcludeColumns,
			Limit:          opts.Limit,
		})
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", src.Path, err)
		}
		log.Info("relation loaded",
			zap.String("file", src.Path),
			zap.Int("attributes", rel.NumAttributes()),
			zap.Int("tuples", rel.NumTuples()))
		return rel, nil

	default:
		return nil, fmt.Errorf("unknown source type: %s", src.Type)
	}
}
