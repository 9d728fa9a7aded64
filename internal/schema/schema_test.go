package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hurou927/fd-discover/internal/db"
)

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"orders"`, QuoteIdent("orders"))
	assert.Equal(t, `"we""ird"`, QuoteIdent(`we"ird`))
}

func TestWithout(t *testing.T) {
	tbl := &Table{
		Schema:     "sales",
		Name:       "orders",
		Columns:    []Column{{Name: "id"}, {Name: "region"}, {Name: "note"}},
		PrimaryKey: &PrimaryKey{Columns: []string{"id", "region"}},
	}
	assert.Equal(t, "sales.orders", tbl.FullName())

	out := tbl.Without(map[string]bool{"note": true, "id": true})
	assert.Equal(t, []string{"region"}, out.ColumnNames())
	assert.Equal(t, []string{"region"}, out.PKColumnNames())
	assert.Len(t, tbl.Columns, 3)

	out = tbl.Without(map[string]bool{"id": true, "region": true})
	assert.Nil(t, out.PKColumnNames())
	assert.Equal(t, "orders", (&Table{Name: "orders"}).FullName())
}

func TestIntrospectSQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ExecContext(ctx, `CREATE TABLE cities (country TEXT NOT NULL, capital TEXT, population INTEGER, PRIMARY KEY (capital, country))`)
	require.NoError(t, err)

	tbl, err := IntrospectSQLite(ctx, conn, "cities")
	require.NoError(t, err)
	assert.Equal(t, []string{"country", "capital", "population"}, tbl.ColumnNames())
	assert.Equal(t, []string{"capital", "country"}, tbl.PKColumnNames())
	assert.False(t, tbl.Columns[0].Nullable)
	assert.Equal(t, "INTEGER", tbl.Columns[2].DataType)
	assert.Equal(t, 3, tbl.Columns[2].OrdPos)

	_, err = IntrospectSQLite(ctx, conn, "missing")
	assert.Error(t, err)
}
