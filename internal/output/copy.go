package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/hurou927/fd-discover/internal/fd"
	"github.com/hurou927/fd-discover/internal/schema"
)

// DefaultCopyTable is the table COPY output loads into.
const DefaultCopyTable = "fd_results"

// CopyWriter writes dependencies as a SQL script that loads them with COPY.
type CopyWriter struct {
	w     io.Writer
	table string
}

// NewCopyWriter creates a COPY writer targeting table, or DefaultCopyTable when empty.
func NewCopyWriter(w io.Writer, table string) *CopyWriter {
	if table == "" {
		table = DefaultCopyTable
	}
	return &CopyWriter{w: w, table: table}
}

// WriteHeader writes BEGIN and the target table definition.
func (cw *CopyWriter) WriteHeader() error {
	_, err := fmt.Fprintln(cw.w, "BEGIN;")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cw.w,
		"CREATE TABLE IF NOT EXISTS %s (relation text NOT NULL, determinant text[] NOT NULL, dependent text NOT NULL, error double precision NOT NULL);\n",
		cw.quotedTable())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cw.w)
	return err
}

// WriteFooter writes COMMIT.
func (cw *CopyWriter) WriteFooter() error {
	_, err := fmt.Fprintln(cw.w, "COMMIT;")
	return err
}

// WriteDependencies writes a COPY block with one row per dependency of relation.
func (cw *CopyWriter) WriteDependencies(relation string, names []string, deps []fd.Dependency) error {
	if len(deps) == 0 {
		return nil
	}

	_, err := fmt.Fprintf(cw.w, "COPY %s (relation, determinant, dependent, error) FROM stdin;\n", cw.quotedTable())
	if err != nil {
		return err
	}

	for _, d := range deps {
		vals := []string{
			EscapeCopyValue(relation),
			EscapeCopyValue(d.DeterminantNames(names)),
			EscapeCopyValue(fd.AttributeName(names, d.Dependent)),
			EscapeCopyValue(d.Error),
		}
		_, err := fmt.Fprintln(cw.w, strings.Join(vals, "\t"))
		if err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(cw.w, `\.`)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cw.w)
	return err
}

func (cw *CopyWriter) quotedTable() string {
	if i := strings.IndexByte(cw.table, '.'); i >= 0 {
		return schema.QuoteIdent(cw.table[:i]) + "." + schema.QuoteIdent(cw.table[i+1:])
	}
	return schema.QuoteIdent(cw.table)
}
