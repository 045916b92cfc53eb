package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/registry"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/table"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/pkg/job"
)

// countColumn is the result column of the grouped-count mode.
const countColumn = "cantidad"

// Aggregate reduces a table via one of four mutually exclusive modes:
// pivot (takes priority), grouped aggregation, grouped count, or bare
// aggregation over the whole table. With no grouping, pivot or aggregation
// configured it is a pass-through.
//
// All modes resolve aggregate functions through the shared registry; an
// unregistered name is fatal.
type Aggregate struct {
	groupBy []string
	aggs    []job.Aggregation
	pivot   *job.PivotSpec
}

// NewAggregate creates the aggregation stage from the job's grouping,
// aggregation and pivot specifications.
func NewAggregate(groupBy []string, aggs []job.Aggregation, pivot *job.PivotSpec) *Aggregate {
	return &Aggregate{groupBy: groupBy, aggs: aggs, pivot: pivot}
}

// Grouped reports whether this stage replaces the table's row identity,
// i.e. whether a grouping or pivot step will actually run. The executor
// uses this to decide whether the post-aggregation filter applies at all.
func (a *Aggregate) Grouped() bool {
	return a.pivot != nil || len(a.groupBy) > 0
}

// Apply dispatches to the configured mode.
func (a *Aggregate) Apply(ctx context.Context, t *table.Table) (*table.Table, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	switch {
	case a.pivot != nil:
		return a.applyPivot(t)
	case len(a.groupBy) > 0 && len(a.aggs) > 0:
		return a.applyGrouped(t)
	case len(a.groupBy) > 0:
		return a.applyGroupedCount(t)
	case len(a.aggs) > 0:
		return a.applyBare(t)
	default:
		return t, nil
	}
}

// grouping partitions row indices by the distinct combinations of the key
// fields. Keys are ordered ascending by their field values so grouped,
// counted and pivoted output comes out sorted by key.
type grouping struct {
	order  []string           // group keys in ascending key-value order
	rows   map[string][]int   // key -> member row indices
	values map[string][]any   // key -> key-field values, aligned with fields
	fields []string
}

func groupRows(t *table.Table, fields []string) (*grouping, error) {
	columns := make([][]any, len(fields))
	for i, f := range fields {
		col, ok := t.Column(f)
		if !ok {
			return nil, fmt.Errorf("grouping: %w: %q", ErrUnknownField, f)
		}
		columns[i] = col
	}

	g := &grouping{
		rows:   make(map[string][]int),
		values: make(map[string][]any),
		fields: fields,
	}

	var key strings.Builder
	for i := 0; i < t.Len(); i++ {
		key.Reset()
		keyValues := make([]any, len(fields))
		for j, col := range columns {
			if j > 0 {
				key.WriteString("\x00||\x00")
			}
			// %#v differentiates 1 from "1" and from 1.0.
			fmt.Fprintf(&key, "%#v", col[i])
			keyValues[j] = col[i]
		}
		k := key.String()
		if _, seen := g.rows[k]; !seen {
			g.order = append(g.order, k)
			g.values[k] = keyValues
		}
		g.rows[k] = append(g.rows[k], i)
	}

	sort.SliceStable(g.order, func(a, b int) bool {
		va, vb := g.values[g.order[a]], g.values[g.order[b]]
		for i := range va {
			if c := sortCompare(va[i], vb[i]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return g, nil
}

// resolvedAgg is one (field, function) output with the function resolved.
type resolvedAgg struct {
	field  string
	fnName string
	column string
	fn     registry.Func
}

// resolveAggs validates fields against the table, resolves function names
// and fixes the output column names: a field aggregated by a single
// function keeps its own name, multiple functions produce field_func.
func resolveAggs(t *table.Table, aggs []job.Aggregation) ([]resolvedAgg, error) {
	var resolved []resolvedAgg
	for _, agg := range aggs {
		if !t.HasColumn(agg.Field) {
			return nil, fmt.Errorf("aggregation: %w: %q", ErrUnknownField, agg.Field)
		}
		for _, name := range agg.Funcs {
			fn, ok := registry.Lookup(name)
			if !ok {
				return nil, fmt.Errorf("%w: %q (registered: %s)",
					ErrUnknownAggregate, name, strings.Join(registry.Names(), ", "))
			}
			column := agg.Field
			if len(agg.Funcs) > 1 {
				column = agg.Field + "_" + name
			}
			resolved = append(resolved, resolvedAgg{field: agg.Field, fnName: name, column: column, fn: fn})
		}
	}
	return resolved, nil
}

func gather(col []any, rows []int) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = col[r]
	}
	return out
}

// applyGrouped: one result row per distinct group-key combination, columns
// are the group fields followed by the aggregate columns, index reset.
func (a *Aggregate) applyGrouped(t *table.Table) (*table.Table, error) {
	resolved, err := resolveAggs(t, a.aggs)
	if err != nil {
		return nil, err
	}
	g, err := groupRows(t, a.groupBy)
	if err != nil {
		return nil, err
	}

	out := table.New()
	for i, field := range a.groupBy {
		values := make([]any, len(g.order))
		for j, key := range g.order {
			values[j] = g.values[key][i]
		}
		if err := out.SetColumn(field, values); err != nil {
			return nil, err
		}
	}
	for _, ra := range resolved {
		col, _ := t.Column(ra.field)
		values := make([]any, len(g.order))
		for j, key := range g.order {
			values[j] = ra.fn(gather(col, g.rows[key]))
		}
		if err := out.SetColumn(ra.column, values); err != nil {
			return nil, err
		}
	}
	out.ResetIndex()
	return out, nil
}

// applyGroupedCount: grouping without an aggregation spec counts rows per
// group into the "cantidad" column.
func (a *Aggregate) applyGroupedCount(t *table.Table) (*table.Table, error) {
	g, err := groupRows(t, a.groupBy)
	if err != nil {
		return nil, err
	}

	out := table.New()
	for i, field := range a.groupBy {
		values := make([]any, len(g.order))
		for j, key := range g.order {
			values[j] = g.values[key][i]
		}
		if err := out.SetColumn(field, values); err != nil {
			return nil, err
		}
	}
	counts := make([]any, len(g.order))
	for j, key := range g.order {
		counts[j] = int64(len(g.rows[key]))
	}
	if err := out.SetColumn(countColumn, counts); err != nil {
		return nil, err
	}
	out.ResetIndex()
	return out, nil
}

// applyBare aggregates the whole table with no partitioning: one result row
// per aggregate function, function names as row labels, one column per
// aggregated field. Cells for functions not requested on a field are null.
func (a *Aggregate) applyBare(t *table.Table) (*table.Table, error) {
	resolved, err := resolveAggs(t, a.aggs)
	if err != nil {
		return nil, err
	}

	var fnOrder []string
	seenFn := map[string]bool{}
	for _, ra := range resolved {
		if !seenFn[ra.fnName] {
			seenFn[ra.fnName] = true
			fnOrder = append(fnOrder, ra.fnName)
		}
	}

	out := table.New()
	for _, agg := range a.aggs {
		col, _ := t.Column(agg.Field)
		wants := map[string]bool{}
		for _, name := range agg.Funcs {
			wants[name] = true
		}
		values := make([]any, len(fnOrder))
		for i, name := range fnOrder {
			if wants[name] {
				fn, _ := registry.Lookup(name)
				values[i] = fn(col)
			}
		}
		if err := out.SetColumn(agg.Field, values); err != nil {
			return nil, err
		}
	}

	index := make([]any, len(fnOrder))
	for i, name := range fnOrder {
		index[i] = name
	}
	if err := out.SetIndex(index); err != nil {
		return nil, err
	}
	return out, nil
}

// applyPivot cross-tabulates the table: rows keyed by the index fields,
// one column per distinct column-field combination (cross-producted with
// the value fields when there is more than one), cells aggregated by the
// pivot function. Combinations with no matching rows yield the configured
// fill value (nil by default), not zero.
func (a *Aggregate) applyPivot(t *table.Table) (*table.Table, error) {
	spec := a.pivot
	if len(spec.Index) == 0 || len(spec.Columns) == 0 || len(spec.Values) == 0 {
		return nil, fmt.Errorf("pivot: index, columns and values are all required")
	}

	fnName := spec.Func
	if fnName == "" {
		fnName = "mean"
	}
	fn, ok := registry.Lookup(fnName)
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)",
			ErrUnknownAggregate, fnName, strings.Join(registry.Names(), ", "))
	}

	valueCols := make(map[string][]any, len(spec.Values))
	for _, field := range spec.Values {
		col, ok := t.Column(field)
		if !ok {
			return nil, fmt.Errorf("pivot: %w: %q", ErrUnknownField, field)
		}
		valueCols[field] = col
	}

	rowGroups, err := groupRows(t, spec.Index)
	if err != nil {
		return nil, err
	}
	colGroups, err := groupRows(t, spec.Columns)
	if err != nil {
		return nil, err
	}

	// cells[rowKey][colKey] = member row indices.
	cells := make(map[string]map[string][]int, len(rowGroups.order))
	colOfRow := invertGroups(colGroups)
	rowOfRow := invertGroups(rowGroups)
	for i := 0; i < t.Len(); i++ {
		rk, ck := rowOfRow[i], colOfRow[i]
		if cells[rk] == nil {
			cells[rk] = make(map[string][]int)
		}
		cells[rk][ck] = append(cells[rk][ck], i)
	}

	out := table.New()
	for i, field := range spec.Index {
		values := make([]any, len(rowGroups.order))
		for j, key := range rowGroups.order {
			values[j] = rowGroups.values[key][i]
		}
		if err := out.SetColumn(field, values); err != nil {
			return nil, err
		}
	}

	for _, valueField := range spec.Values {
		col := valueCols[valueField]
		for _, colKey := range colGroups.order {
			name := pivotColumnName(valueField, colGroups.values[colKey], len(spec.Values) > 1)
			values := make([]any, len(rowGroups.order))
			for j, rowKey := range rowGroups.order {
				members := cells[rowKey][colKey]
				if len(members) == 0 {
					values[j] = spec.FillValue
					continue
				}
				values[j] = fn(gather(col, members))
			}
			if err := out.SetColumn(name, values); err != nil {
				return nil, err
			}
		}
	}

	// The row index becomes the combination of index-field values.
	index := make([]any, len(rowGroups.order))
	for j, key := range rowGroups.order {
		index[j] = pivotRowLabel(rowGroups.values[key])
	}
	if err := out.SetIndex(index); err != nil {
		return nil, err
	}
	return out, nil
}

// invertGroups maps each source row to its group key.
func invertGroups(g *grouping) map[int]string {
	out := make(map[int]string)
	for key, rows := range g.rows {
		for _, r := range rows {
			out[r] = key
		}
	}
	return out
}

func pivotColumnName(valueField string, colValues []any, multiValue bool) string {
	parts := make([]string, len(colValues))
	for i, v := range colValues {
		parts[i] = fmt.Sprint(v)
	}
	label := strings.Join(parts, "_")
	if multiValue {
		return valueField + "_" + label
	}
	return label
}

func pivotRowLabel(values []any) any {
	if len(values) == 1 {
		return values[0]
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "/")
}
