package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/table"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/pkg/job"
)

func aggTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromColumns([]string{"id", "cat", "zona", "amt"}, map[string][]any{
		"id":   {int64(1), int64(2), int64(3), int64(4), int64(5)},
		"cat":  {"A", "B", "A", "B", "A"},
		"zona": {"N", "N", "S", "S", "N"},
		"amt":  {float64(10), float64(20), float64(5), float64(15), float64(25)},
	})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	return tbl
}

func TestGroupedAggregation(t *testing.T) {
	stage := NewAggregate([]string{"cat"}, []job.Aggregation{{Field: "amt", Funcs: []string{"sum"}}}, nil)
	out, err := stage.Apply(context.Background(), aggTable(t))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if got := out.Columns(); !reflect.DeepEqual(got, []string{"cat", "amt"}) {
		t.Fatalf("columns = %v", got)
	}
	// One row per distinct group key, sorted ascending by key.
	cat, _ := out.Column("cat")
	if !reflect.DeepEqual(cat, []any{"A", "B"}) {
		t.Errorf("cat = %v", cat)
	}
	amt, _ := out.Column("amt")
	if !reflect.DeepEqual(amt, []any{float64(40), float64(35)}) {
		t.Errorf("amt = %v", amt)
	}
	// Grouping resets the index.
	if got := out.Index(); !reflect.DeepEqual(got, []any{int64(0), int64(1)}) {
		t.Errorf("index = %v", got)
	}
}

func TestGroupedAggregationMultiFunc(t *testing.T) {
	stage := NewAggregate([]string{"cat"}, []job.Aggregation{{Field: "amt", Funcs: []string{"sum", "mean"}}}, nil)
	out, err := stage.Apply(context.Background(), aggTable(t))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := out.Columns(); !reflect.DeepEqual(got, []string{"cat", "amt_sum", "amt_mean"}) {
		t.Errorf("columns = %v", got)
	}
}

func TestGroupedAggregationMultiKey(t *testing.T) {
	stage := NewAggregate([]string{"cat", "zona"}, []job.Aggregation{{Field: "amt", Funcs: []string{"sum"}}}, nil)
	out, err := stage.Apply(context.Background(), aggTable(t))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// Distinct (cat, zona) combinations, sorted: (A,N) (A,S) (B,N) (B,S).
	if out.Len() != 4 {
		t.Errorf("rows = %d, want one per distinct key combination", out.Len())
	}
	cat, _ := out.Column("cat")
	zona, _ := out.Column("zona")
	if !reflect.DeepEqual(cat, []any{"A", "A", "B", "B"}) || !reflect.DeepEqual(zona, []any{"N", "S", "N", "S"}) {
		t.Errorf("keys = %v/%v, want ascending (cat, zona) order", cat, zona)
	}
	amt, _ := out.Column("amt")
	if !reflect.DeepEqual(amt, []any{float64(35), float64(5), float64(20), float64(15)}) {
		t.Errorf("amt = %v", amt)
	}
}

func TestGroupedAggregationSortsKeys(t *testing.T) {
	tbl, err := table.FromColumns([]string{"cat", "amt"}, map[string][]any{
		"cat": {"B", "A", "B"},
		"amt": {float64(1), float64(2), float64(3)},
	})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	out, err := NewAggregate([]string{"cat"}, []job.Aggregation{{Field: "amt", Funcs: []string{"sum"}}}, nil).
		Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// Keys come out ascending regardless of appearance order.
	cat, _ := out.Column("cat")
	if !reflect.DeepEqual(cat, []any{"A", "B"}) {
		t.Errorf("cat = %v, want [A B]", cat)
	}
	amt, _ := out.Column("amt")
	if !reflect.DeepEqual(amt, []any{float64(2), float64(4)}) {
		t.Errorf("amt = %v", amt)
	}
}

func TestGroupedCount(t *testing.T) {
	tbl := aggTable(t)
	stage := NewAggregate([]string{"cat"}, nil, nil)
	out, err := stage.Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := out.Columns(); !reflect.DeepEqual(got, []string{"cat", "cantidad"}) {
		t.Fatalf("columns = %v", got)
	}
	counts, _ := out.Column("cantidad")
	total := int64(0)
	for _, c := range counts {
		total += c.(int64)
	}
	if total != int64(tbl.Len()) {
		t.Errorf("cantidad sums to %d, want the input row count %d", total, tbl.Len())
	}
}

func TestBareAggregation(t *testing.T) {
	stage := NewAggregate(nil, []job.Aggregation{{Field: "amt", Funcs: []string{"sum", "max"}}}, nil)
	out, err := stage.Apply(context.Background(), aggTable(t))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// One row per aggregate function, function names as row labels.
	if got := out.Index(); !reflect.DeepEqual(got, []any{"sum", "max"}) {
		t.Errorf("index = %v", got)
	}
	amt, _ := out.Column("amt")
	if !reflect.DeepEqual(amt, []any{float64(75), float64(25)}) {
		t.Errorf("amt = %v", amt)
	}
}

func TestPivot(t *testing.T) {
	stage := NewAggregate(nil, nil, &job.PivotSpec{
		Index:   []string{"zona"},
		Columns: []string{"cat"},
		Values:  []string{"amt"},
		Func:    "sum",
	})
	out, err := stage.Apply(context.Background(), aggTable(t))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if got := out.Columns(); !reflect.DeepEqual(got, []string{"zona", "A", "B"}) {
		t.Fatalf("columns = %v", got)
	}
	a, _ := out.Column("A")
	if !reflect.DeepEqual(a, []any{float64(35), float64(5)}) {
		t.Errorf("A = %v", a)
	}
	b, _ := out.Column("B")
	if !reflect.DeepEqual(b, []any{float64(20), float64(15)}) {
		t.Errorf("B = %v", b)
	}
	// The row index is the distinct combination of index-field values.
	if got := out.Index(); !reflect.DeepEqual(got, []any{"N", "S"}) {
		t.Errorf("index = %v", got)
	}
}

func TestPivotEmptyCellsGetFillValue(t *testing.T) {
	tbl, err := table.FromColumns([]string{"zona", "cat", "amt"}, map[string][]any{
		"zona": {"N", "S"},
		"cat":  {"A", "B"},
		"amt":  {float64(1), float64(2)},
	})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}

	// (N,B) and (S,A) have no rows: default fill is nil, not zero.
	stage := NewAggregate(nil, nil, &job.PivotSpec{
		Index:   []string{"zona"},
		Columns: []string{"cat"},
		Values:  []string{"amt"},
		Func:    "sum",
	})
	out, err := stage.Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	b, _ := out.Column("B")
	if b[0] != nil {
		t.Errorf("empty combination = %v, want nil", b[0])
	}

	// With an explicit fill value.
	stage = NewAggregate(nil, nil, &job.PivotSpec{
		Index:     []string{"zona"},
		Columns:   []string{"cat"},
		Values:    []string{"amt"},
		Func:      "sum",
		FillValue: 0,
	})
	out, err = stage.Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	b, _ = out.Column("B")
	if b[0] != 0 {
		t.Errorf("filled combination = %v, want 0", b[0])
	}
}

func TestPivotTakesPriorityOverGrouping(t *testing.T) {
	stage := NewAggregate([]string{"cat"}, []job.Aggregation{{Field: "amt", Funcs: []string{"sum"}}}, &job.PivotSpec{
		Index:   []string{"zona"},
		Columns: []string{"cat"},
		Values:  []string{"amt"},
		Func:    "sum",
	})
	out, err := stage.Apply(context.Background(), aggTable(t))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !reflect.DeepEqual(out.Columns(), []string{"zona", "A", "B"}) {
		t.Errorf("pivot should win over grouping, columns = %v", out.Columns())
	}
}

func TestPassThrough(t *testing.T) {
	tbl := aggTable(t)
	stage := NewAggregate(nil, nil, nil)
	out, err := stage.Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out != tbl {
		t.Error("pass-through should return the table unmodified")
	}
	if stage.Grouped() {
		t.Error("pass-through must not count as grouped")
	}
}

func TestUnknownAggregateFunction(t *testing.T) {
	stage := NewAggregate([]string{"cat"}, []job.Aggregation{{Field: "amt", Funcs: []string{"promedio"}}}, nil)
	_, err := stage.Apply(context.Background(), aggTable(t))
	if !errors.Is(err, ErrUnknownAggregate) {
		t.Errorf("err = %v, want ErrUnknownAggregate", err)
	}
}

func TestGroupingUnknownField(t *testing.T) {
	stage := NewAggregate([]string{"nope"}, nil, nil)
	_, err := stage.Apply(context.Background(), aggTable(t))
	if !errors.Is(err, ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}
}

func TestGroupKeysDistinguishTypes(t *testing.T) {
	tbl, err := table.FromColumns([]string{"k", "v"}, map[string][]any{
		"k": {int64(1), "1", int64(1)},
		"v": {float64(1), float64(1), float64(1)},
	})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	stage := NewAggregate([]string{"k"}, nil, nil)
	out, err := stage.Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Len() != 2 {
		t.Errorf("int64(1) and \"1\" should be distinct group keys, got %d groups", out.Len())
	}
}

// The scenario from the engine's acceptance checklist: filter, then group.
func TestFilterThenGroupScenario(t *testing.T) {
	tbl, err := table.FromColumns([]string{"id", "cat", "amt"}, map[string][]any{
		"id":  {int64(1), int64(2), int64(3)},
		"cat": {"A", "B", "A"},
		"amt": {float64(10), float64(20), float64(5)},
	})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}

	filtered, err := NewFilter([]job.FilterClause{{Field: "amt", Op: ">=", Operand: 5}}).
		Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	out, err := NewAggregate([]string{"cat"}, []job.Aggregation{{Field: "amt", Funcs: []string{"sum"}}}, nil).
		Apply(context.Background(), filtered)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	cat, _ := out.Column("cat")
	amt, _ := out.Column("amt")
	if !reflect.DeepEqual(cat, []any{"A", "B"}) || !reflect.DeepEqual(amt, []any{float64(15), float64(20)}) {
		t.Errorf("got cat=%v amt=%v, want A/B with 15/20", cat, amt)
	}
}
