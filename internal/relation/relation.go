// Package relation provides the tuples that dependency discovery runs on, and loaders
// that read them from CSV files, PostgreSQL and SQLite.
package relation

import "fmt"

// Relation is a fixed set of attributes over a multiset of tuples.
type Relation interface {
	NumAttributes() int
	NumTuples() int
	// ValueGroups groups tuple ids by their value of attribute attr.
	// How NULL values are grouped is up to the implementation.
	ValueGroups(attr int) map[string][]int
}

// Table is an in-memory Relation. A nil value is NULL.
type Table struct {
	Name       string
	Attributes []string
	Rows       [][]any
	// NullEqualsNull makes all NULLs of a column one group. Otherwise every NULL is
	// distinct from every other value, including other NULLs.
	NullEqualsNull bool
}

// NewTable returns an empty table with the given attribute names.
func NewTable(name string, attributes []string, nullEqualsNull bool) *Table {
	return &Table{Name: name, Attributes: attributes, NullEqualsNull: nullEqualsNull}
}

// Append adds a tuple.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.Attributes) {
		return fmt.Errorf("tuple has %d values, want %d", len(values), len(t.Attributes))
	}
	t.Rows = append(t.Rows, values)
	return nil
}

// NumAttributes returns the number of attributes.
func (t *Table) NumAttributes() int {
	return len(t.Attributes)
}

// NumTuples returns the number of tuples.
func (t *Table) NumTuples() int {
	return len(t.Rows)
}

// AttributeNames returns the attribute names in index order.
func (t *Table) AttributeNames() []string {
	return t.Attributes
}

// ValueGroups groups tuple ids by the value of attribute attr.
func (t *Table) ValueGroups(attr int) map[string][]int {
	groups := make(map[string][]int)
	for id, row := range t.Rows {
		v := row[attr]
		if v == nil && !t.NullEqualsNull {
			continue
		}
		key := ValueKey(v)
		groups[key] = append(groups[key], id)
	}
	return groups
}
