package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/table"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/pkg/job"
)

func TestSortDescending(t *testing.T) {
	tbl, err := table.FromColumns([]string{"id", "amt"}, map[string][]any{
		"id":  {int64(1), int64(2), int64(3)},
		"amt": {float64(10), float64(20), float64(5)},
	})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}

	out, err := NewSort([]job.SortKey{{Field: "amt", Desc: true}}).Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	ids, _ := out.Column("id")
	if !reflect.DeepEqual(ids, []any{int64(2), int64(1), int64(3)}) {
		t.Errorf("id order = %v, want [2 1 3]", ids)
	}
	// Row labels travel with their rows.
	if got := out.Index(); !reflect.DeepEqual(got, []any{int64(1), int64(0), int64(2)}) {
		t.Errorf("index = %v", got)
	}
}

func TestSortIsStable(t *testing.T) {
	tbl, err := table.FromColumns([]string{"id", "cat"}, map[string][]any{
		"id":  {int64(1), int64(2), int64(3), int64(4)},
		"cat": {"B", "A", "B", "A"},
	})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}

	out, err := NewSort([]job.SortKey{{Field: "cat"}}).Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	ids, _ := out.Column("id")
	// Equal keys keep their input order: 2 before 4, 1 before 3.
	if !reflect.DeepEqual(ids, []any{int64(2), int64(4), int64(1), int64(3)}) {
		t.Errorf("id order = %v, want [2 4 1 3]", ids)
	}
}

func TestSortMultiKey(t *testing.T) {
	tbl, err := table.FromColumns([]string{"id", "cat", "amt"}, map[string][]any{
		"id":  {int64(1), int64(2), int64(3), int64(4)},
		"cat": {"B", "A", "B", "A"},
		"amt": {float64(5), float64(20), float64(10), float64(10)},
	})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}

	out, err := NewSort([]job.SortKey{
		{Field: "cat"},
		{Field: "amt", Desc: true},
	}).Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	ids, _ := out.Column("id")
	if !reflect.DeepEqual(ids, []any{int64(2), int64(4), int64(3), int64(1)}) {
		t.Errorf("id order = %v, want [2 4 3 1]", ids)
	}
}

func TestSortNilsFirst(t *testing.T) {
	tbl, err := table.FromColumns([]string{"id", "amt"}, map[string][]any{
		"id":  {int64(1), int64(2), int64(3)},
		"amt": {float64(10), nil, float64(5)},
	})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}

	out, err := NewSort([]job.SortKey{{Field: "amt"}}).Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	ids, _ := out.Column("id")
	if !reflect.DeepEqual(ids, []any{int64(2), int64(3), int64(1)}) {
		t.Errorf("id order = %v, want nil row first", ids)
	}
}

func TestSortMixedNumericTypes(t *testing.T) {
	tbl, err := table.FromColumns([]string{"id", "amt"}, map[string][]any{
		"id":  {int64(1), int64(2), int64(3)},
		"amt": {int64(10), float64(2.5), int64(7)},
	})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}

	out, err := NewSort([]job.SortKey{{Field: "amt"}}).Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	ids, _ := out.Column("id")
	if !reflect.DeepEqual(ids, []any{int64(2), int64(3), int64(1)}) {
		t.Errorf("id order = %v, int and float should compare numerically", ids)
	}
}

func TestSortUnknownField(t *testing.T) {
	tbl, err := table.FromColumns([]string{"id"}, map[string][]any{
		"id": {int64(1)},
	})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	_, err = NewSort([]job.SortKey{{Field: "nope"}}).Apply(context.Background(), tbl)
	if !errors.Is(err, ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}
}

func TestSortNoKeysPassThrough(t *testing.T) {
	tbl, err := table.FromColumns([]string{"id"}, map[string][]any{
		"id": {int64(2), int64(1)},
	})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	out, err := NewSort(nil).Apply(context.Background(), tbl)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	ids, _ := out.Column("id")
	if !reflect.DeepEqual(ids, []any{int64(2), int64(1)}) {
		t.Errorf("id order = %v, want unchanged", ids)
	}
}
