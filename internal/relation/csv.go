package relation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
)

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	Name string
	// Comma is the field delimiter; zero means ','.
	Comma rune
	// NoHeader makes the first record data; attributes are then named col0, col1, ...
	NoHeader bool
	// NullTokens are field values read as NULL.
	NullTokens     []string
	NullEqualsNull bool
	ExcludeColumns map[string]bool
	Limit          int
}

// ReadCSV reads a relation from CSV. All values are strings or NULL.
func ReadCSV(r io.Reader, opts CSVOptions) (*Table, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.ReuseRecord = true

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading csv header: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	var names []string
	var pending []string
	if opts.NoHeader {
		names = make([]string, len(first))
		for i := range first {
			names[i] = fmt.Sprintf("col%d", i)
		}
		pending = slices.Clone(first)
	} else {
		names = slices.Clone(first)
	}

	var keep []int
	var kept []string
	for i, name := range names {
		if !opts.ExcludeColumns[name] {
			keep = append(keep, i)
			kept = append(kept, name)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("csv has no columns left to analyze")
	}

	out := NewTable(opts.Name, kept, opts.NullEqualsNull)
	add := func(record []string) error {
		values := make([]any, len(keep))
		for j, i := range keep {
			if slices.Contains(opts.NullTokens, record[i]) {
				continue
			}
			values[j] = record[i]
		}
		return out.Append(values...)
	}

	if pending != nil {
		if err := add(pending); err != nil {
			return nil, err
		}
	}
	for opts.Limit <= 0 || out.NumTuples() < opts.Limit {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv record %d: %w", out.NumTuples()+1, err)
		}
		if err := add(record); err != nil {
			return nil, err
		}
	}
	return out, nil
}
