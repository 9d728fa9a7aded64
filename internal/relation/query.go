package relation

import (
	"fmt"
	"strings"

	"github.com/hurou927/fd-discover/internal/schema"
)

// LoadOptions restricts which tuples and columns a database loader reads.
type LoadOptions struct {
	Where          string
	Limit          int
	ExcludeColumns map[string]bool
	NullEqualsNull bool
}

// buildSelectQuery builds the SELECT for a table's columns. Rows are ordered by the
// primary key when there is one, so tuple ids are stable between runs.
func buildSelectQuery(qualifiedName string, table *schema.Table, opts LoadOptions) string {
	cols := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		cols[i] = schema.QuoteIdent(c.Name)
	}
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), qualifiedName)
	if opts.Where != "" {
		q += " WHERE " + opts.Where
	}
	if pk := table.PKColumnNames(); len(pk) > 0 {
		keys := make([]string, len(pk))
		for i, c := range pk {
			keys[i] = schema.QuoteIdent(c)
		}
		q += " ORDER BY " + strings.Join(keys, ", ")
	}
	if opts.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	return q
}
