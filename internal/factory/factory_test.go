package factory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/table"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/pkg/job"
)

func originTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromColumns([]string{"id", "cat", "amt"}, map[string][]any{
		"id":  {int64(1), int64(2), int64(3)},
		"cat": {"A", "B", "A"},
		"amt": {float64(10), float64(20), float64(5)},
	})
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	return tbl
}

func readCSVLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	content := strings.TrimPrefix(string(raw), "\ufeff")
	return strings.Split(strings.TrimSpace(content), "\n")
}

func TestBuildExecutorFullJob(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.csv")
	exec, err := BuildExecutor(&job.Job{
		Origin:       originTable(t),
		Derived:      []job.DerivedField{{Name: "total", Formula: "amt * 2"}},
		Filter:       []job.FilterClause{{Field: "amt", Op: ">=", Operand: 5}},
		GroupBy:      []string{"cat"},
		Aggregations: []job.Aggregation{{Field: "total", Funcs: []string{"sum"}}},
		Sort:         []job.SortKey{{Field: "total", Desc: true}},
		Destination:  dest,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, err := exec.Execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}

	lines := readCSVLines(t, dest)
	if lines[0] != "index,cat,total" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "1,B,40" || lines[2] != "0,A,30" {
		t.Errorf("rows = %v", lines[1:])
	}
}

func TestBuildExecutorDiscardsPostFilterWithoutGrouping(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.csv")
	exec, err := BuildExecutor(&job.Job{
		Origin:      originTable(t),
		PostFilter:  []job.FilterClause{{Field: "amt", Op: ">", Operand: 1000}},
		Destination: dest,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := exec.Execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}

	// The post-filter would have emptied the table; without grouping it
	// must not run at all.
	lines := readCSVLines(t, dest)
	if len(lines) != 4 {
		t.Errorf("got %d lines, want header plus all 3 rows", len(lines))
	}
}

func TestBuildExecutorKeepsPostFilterWithGrouping(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.csv")
	exec, err := BuildExecutor(&job.Job{
		Origin:       originTable(t),
		GroupBy:      []string{"cat"},
		Aggregations: []job.Aggregation{{Field: "amt", Funcs: []string{"sum"}}},
		PostFilter:   []job.FilterClause{{Field: "amt", Op: ">", Operand: 16}},
		Destination:  dest,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := exec.Execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}

	lines := readCSVLines(t, dest)
	if len(lines) != 2 || !strings.Contains(lines[1], "B") {
		t.Errorf("lines = %v, want only the B group (sum 20)", lines)
	}
}

func TestBuildExecutorBadFormula(t *testing.T) {
	_, err := BuildExecutor(&job.Job{
		Origin:  originTable(t),
		Derived: []job.DerivedField{{Name: "x", Formula: "amt +* 2"}},
	})
	if err == nil {
		t.Fatal("expected formula parse error at build time")
	}
}
