// Package output renders discovered dependencies.
package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/hurou927/fd-discover/internal/fd"
)

// WriteTable writes deps as a text table followed by a one-line total.
func WriteTable(w io.Writer, relation string, names []string, deps []fd.Dependency) error {
	rows := make([][]string, 0, len(deps))
	exact := 0
	for _, d := range deps {
		if d.Error == 0 {
			exact++
		}
		rows = append(rows, []string{
			strings.Join(d.DeterminantNames(names), ", "),
			fd.AttributeName(names, d.Dependent),
			strconv.FormatFloat(d.Error, 'f', 4, 64),
		})
	}

	if _, err := fmt.Fprintf(w, "Functional dependencies of %s\n", relation); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"DETERMINANT", "DEPENDENT", "ERROR"})
	table.AppendBulk(rows)
	table.Render()

	_, err := fmt.Fprintf(w, "%d dependencies (%d exact, %d approximate)\n", len(deps), exact, len(deps)-exact)
	return err
}
