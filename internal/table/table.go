// Package table defines the in-memory table that flows between pipeline
// stages: an ordered sequence of named columns of equal length plus a row
// index that survives filtering and sorting and is re-materialized on
// export.
//
// Cell values are restricted to nil, bool, string, int64 and float64;
// source readers coerce raw input into this set.
package table

import (
	"fmt"
)

// Table is an ordered collection of equal-length columns with a row index.
// Stages never mutate a received table's rows in place; they derive a new
// table (or extend this one with SetColumn).
type Table struct {
	cols  []string
	data  map[string][]any
	index []any
}

// New creates an empty table.
func New() *Table {
	return &Table{data: make(map[string][]any)}
}

// FromColumns builds a table from ordered column names and their values.
// All columns must have the same length. The index defaults to 0..n-1.
func FromColumns(names []string, columns map[string][]any) (*Table, error) {
	t := New()
	length := -1
	for _, name := range names {
		values, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("column %q has no values", name)
		}
		if length == -1 {
			length = len(values)
		} else if len(values) != length {
			return nil, fmt.Errorf("column %q has %d values, expected %d", name, len(values), length)
		}
		if err := t.SetColumn(name, values); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// FromRecords builds a table from row-major records with an explicit column
// order. A nil column list falls back to the first-seen key order across
// records, which is only deterministic for callers that control the maps.
func FromRecords(names []string, records []map[string]any) *Table {
	if names == nil {
		seen := make(map[string]bool)
		for _, rec := range records {
			for k := range rec {
				if !seen[k] {
					seen[k] = true
					names = append(names, k)
				}
			}
		}
	}

	t := New()
	for _, name := range names {
		values := make([]any, len(records))
		for i, rec := range records {
			values[i] = rec[name]
		}
		// Length invariant holds by construction.
		t.cols = append(t.cols, name)
		t.data[name] = values
	}
	t.index = defaultIndex(len(records))
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.data[name]
	return ok
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]any, bool) {
	values, ok := t.data[name]
	return values, ok
}

// Len returns the row count.
func (t *Table) Len() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.data[t.cols[0]])
}

// Width returns the column count.
func (t *Table) Width() int {
	return len(t.cols)
}

// Row materializes row i as a field map, suitable as an expression
// environment.
func (t *Table) Row(i int) map[string]any {
	row := make(map[string]any, len(t.cols))
	for _, name := range t.cols {
		row[name] = t.data[name][i]
	}
	return row
}

// Records materializes all rows in column order-independent maps.
func (t *Table) Records() []map[string]any {
	records := make([]map[string]any, t.Len())
	for i := range records {
		records[i] = t.Row(i)
	}
	return records
}

// SetColumn overwrites an existing column in place (keeping its position)
// or appends a new one. The values must match the current row count unless
// the table has no columns yet.
func (t *Table) SetColumn(name string, values []any) error {
	if len(t.cols) > 0 && len(values) != t.Len() {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.Len())
	}
	if _, exists := t.data[name]; !exists {
		t.cols = append(t.cols, name)
	}
	t.data[name] = values
	if t.index == nil {
		t.index = defaultIndex(len(values))
	}
	return nil
}

// Index returns the row labels.
func (t *Table) Index() []any {
	return t.index
}

// SetIndex replaces the row labels. The length must match the row count.
func (t *Table) SetIndex(index []any) error {
	if len(index) != t.Len() {
		return fmt.Errorf("index has %d labels, table has %d rows", len(index), t.Len())
	}
	t.index = index
	return nil
}

// ResetIndex replaces the row labels with a plain sequential index.
func (t *Table) ResetIndex() {
	t.index = defaultIndex(t.Len())
}

// Select returns a new table containing the given rows in the given order.
// Row labels travel with their rows.
func (t *Table) Select(rows []int) *Table {
	out := New()
	out.cols = make([]string, len(t.cols))
	copy(out.cols, t.cols)
	for _, name := range t.cols {
		src := t.data[name]
		values := make([]any, len(rows))
		for i, r := range rows {
			values[i] = src[r]
		}
		out.data[name] = values
	}
	out.index = make([]any, len(rows))
	for i, r := range rows {
		out.index[i] = t.index[r]
	}
	return out
}

// Reorder is Select over a full permutation; it exists for readability at
// sort call sites.
func (t *Table) Reorder(perm []int) *Table {
	return t.Select(perm)
}

func defaultIndex(n int) []any {
	index := make([]any, n)
	for i := range index {
		index[i] = int64(i)
	}
	return index
}
