package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/table"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/pkg/job"
)

func ventasTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromColumns([]string{"id", "cat", "amt", "desc"}, map[string][]any{
		"id":   {int64(1), int64(2), int64(3), int64(4)},
		"cat":  {"A", "B", "A", "C"},
		"amt":  {float64(10), float64(20), float64(5), float64(20)},
		"desc": {"REMERA ROJA", "PANTALON", "REMERA AZUL", nil},
	})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	return tbl
}

func applyFilter(t *testing.T, tbl *table.Table, clauses ...job.FilterClause) *table.Table {
	t.Helper()
	out, err := NewFilter(clauses).Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	return out
}

func columnValues(t *testing.T, tbl *table.Table, name string) []any {
	t.Helper()
	col, ok := tbl.Column(name)
	if !ok {
		t.Fatalf("column %q missing", name)
	}
	return col
}

func TestFilterOperators(t *testing.T) {
	tests := []struct {
		name    string
		clause  job.FilterClause
		wantIDs []any
	}{
		{
			name:    "equality",
			clause:  job.FilterClause{Field: "cat", Op: "==", Operand: "A"},
			wantIDs: []any{int64(1), int64(3)},
		},
		{
			name:    "inequality",
			clause:  job.FilterClause{Field: "cat", Op: "!=", Operand: "A"},
			wantIDs: []any{int64(2), int64(4)},
		},
		{
			name:    "greater or equal with int operand against float column",
			clause:  job.FilterClause{Field: "amt", Op: ">=", Operand: 20},
			wantIDs: []any{int64(2), int64(4)},
		},
		{
			name:    "less than",
			clause:  job.FilterClause{Field: "amt", Op: "<", Operand: 10},
			wantIDs: []any{int64(3)},
		},
		{
			name:    "membership",
			clause:  job.FilterClause{Field: "cat", Op: "in", Operand: []any{"A", "C"}},
			wantIDs: []any{int64(1), int64(3), int64(4)},
		},
		{
			name:    "negated membership",
			clause:  job.FilterClause{Field: "cat", Op: "not in", Operand: []any{"A", "C"}},
			wantIDs: []any{int64(2)},
		},
		{
			name:    "contains coerces to text and excludes nil",
			clause:  job.FilterClause{Field: "desc", Op: "contains", Operand: "REMERA"},
			wantIDs: []any{int64(1), int64(3)},
		},
		{
			name:    "startswith",
			clause:  job.FilterClause{Field: "desc", Op: "startswith", Operand: "PAN"},
			wantIDs: []any{int64(2)},
		},
		{
			name:    "endswith",
			clause:  job.FilterClause{Field: "desc", Op: "endswith", Operand: "AZUL"},
			wantIDs: []any{int64(3)},
		},
		{
			name:    "contains over numeric column",
			clause:  job.FilterClause{Field: "amt", Op: "contains", Operand: "2"},
			wantIDs: []any{int64(2), int64(4)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := applyFilter(t, ventasTable(t), tt.clause)
			if got := columnValues(t, out, "id"); !reflect.DeepEqual(got, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

// Equality and inequality are exact set complements of each other.
func TestFilterComplement(t *testing.T) {
	tbl := ventasTable(t)

	eq := applyFilter(t, tbl, job.FilterClause{Field: "cat", Op: "==", Operand: "A"})
	ne := applyFilter(t, tbl, job.FilterClause{Field: "cat", Op: "!=", Operand: "A"})
	if eq.Len()+ne.Len() != tbl.Len() {
		t.Errorf("== (%d) and != (%d) do not partition %d rows", eq.Len(), ne.Len(), tbl.Len())
	}

	in := applyFilter(t, tbl, job.FilterClause{Field: "cat", Op: "in", Operand: []any{"A", "B"}})
	notIn := applyFilter(t, tbl, job.FilterClause{Field: "cat", Op: "not in", Operand: []any{"A", "B"}})
	if in.Len()+notIn.Len() != tbl.Len() {
		t.Errorf("in (%d) and not in (%d) do not partition %d rows", in.Len(), notIn.Len(), tbl.Len())
	}
}

func TestFilterClauseConjunction(t *testing.T) {
	out := applyFilter(t, ventasTable(t),
		job.FilterClause{Field: "amt", Op: ">=", Operand: 5},
		job.FilterClause{Field: "cat", Op: "==", Operand: "A"},
	)
	if got := columnValues(t, out, "id"); !reflect.DeepEqual(got, []any{int64(1), int64(3)}) {
		t.Errorf("ids = %v", got)
	}
}

func TestFilterUnrecognizedOperatorIsNoOp(t *testing.T) {
	out := applyFilter(t, ventasTable(t),
		job.FilterClause{Field: "amt", Op: "approximately", Operand: 10},
	)
	if out.Len() != 4 {
		t.Errorf("unrecognized operator should filter nothing, got %d rows", out.Len())
	}
}

func TestFilterUnknownField(t *testing.T) {
	_, err := NewFilter([]job.FilterClause{{Field: "nope", Op: "==", Operand: 1}}).
		Apply(context.Background(), ventasTable(t))
	if !errors.Is(err, ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}
}

func TestFilterMembershipNeedsList(t *testing.T) {
	_, err := NewFilter([]job.FilterClause{{Field: "cat", Op: "in", Operand: "A"}}).
		Apply(context.Background(), ventasTable(t))
	if err == nil {
		t.Error("scalar operand for 'in' should fail")
	}
}

func TestFilterPreservesIndex(t *testing.T) {
	out := applyFilter(t, ventasTable(t), job.FilterClause{Field: "cat", Op: "==", Operand: "A"})
	if got := out.Index(); !reflect.DeepEqual(got, []any{int64(0), int64(2)}) {
		t.Errorf("index = %v", got)
	}
}

func TestFilterEmptySpecIsPassThrough(t *testing.T) {
	tbl := ventasTable(t)
	out := applyFilter(t, tbl)
	if out.Len() != tbl.Len() {
		t.Errorf("empty filter changed row count: %d", out.Len())
	}
}
