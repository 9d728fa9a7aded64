package schema

// Column represents a table column.
type Column struct {
	Name     string
	DataType string // database type name (e.g. "int4", "text", "INTEGER")
	Nullable bool
	OrdPos   int // ordinal position (1-based)
}

// PrimaryKey represents a table's primary key.
type PrimaryKey struct {
	Columns []string
}

// Table represents a database table with its columns and PK.
type Table struct {
	Schema     string
	Name       string
	Columns    []Column
	PrimaryKey *PrimaryKey
}

// FullName returns schema-qualified table name.
func (t *Table) FullName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// ColumnNames returns all column names in ordinal order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PKColumnNames returns the primary key column names, or nil if no PK.
func (t *Table) PKColumnNames() []string {
	if t.PrimaryKey == nil {
		return nil
	}
	return t.PrimaryKey.Columns
}

// Without returns a copy of t without the named columns. Primary key columns that are
// excluded are dropped from the key as well.
func (t *Table) Without(exclude map[string]bool) *Table {
	out := &Table{Schema: t.Schema, Name: t.Name}
	for _, c := range t.Columns {
		if !exclude[c.Name] {
			out.Columns = append(out.Columns, c)
		}
	}
	if t.PrimaryKey != nil {
		pk := &PrimaryKey{}
		for _, c := range t.PrimaryKey.Columns {
			if !exclude[c] {
				pk.Columns = append(pk.Columns, c)
			}
		}
		if len(pk.Columns) > 0 {
			out.PrimaryKey = pk
		}
	}
	return out
}
