package engine

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/table"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/pkg/job"
)

// Derive computes derived columns from formulas over the existing columns.
// Formulas are compiled with the expr library: a scoped arithmetic/
// comparison/boolean expression grammar with column names as free
// variables. There is no access to anything outside the row's own columns
// and no side effects; this is deliberately not a general code-evaluation
// facility.
type Derive struct {
	fields []derivedField
}

type derivedField struct {
	name    string
	program *vm.Program
	// refs are the column names the formula references, extracted from the
	// parsed AST (function callees excluded).
	refs []string
}

// NewDerive creates the stage and compiles every formula up front, so
// syntax errors surface before any data is touched.
func NewDerive(fields []job.DerivedField) (*Derive, error) {
	compiled := make([]derivedField, 0, len(fields))
	for _, f := range fields {
		refs, err := formulaReferences(f.Formula)
		if err != nil {
			return nil, fmt.Errorf("derived field %q: %w: %v", f.Name, ErrFormulaSyntax, err)
		}
		program, err := compileFormula(f.Formula)
		if err != nil {
			return nil, fmt.Errorf("derived field %q: %w: %v", f.Name, ErrFormulaSyntax, err)
		}
		compiled = append(compiled, derivedField{name: f.Name, program: program, refs: refs})
	}
	return &Derive{fields: compiled}, nil
}

// Apply evaluates each formula in declaration order; later formulas see the
// columns produced by earlier ones. The result column overwrites an
// existing column of the same name or appends a new one.
func (d *Derive) Apply(ctx context.Context, t *table.Table) (*table.Table, error) {
	for _, field := range d.fields {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for _, ref := range field.refs {
			if !t.HasColumn(ref) {
				return nil, fmt.Errorf("derived field %q: %w: %q", field.name, ErrUnknownField, ref)
			}
		}

		values := make([]any, t.Len())
		for i := 0; i < t.Len(); i++ {
			out, err := vm.Run(field.program, t.Row(i))
			if err != nil {
				return nil, fmt.Errorf("derived field %q: evaluating row %d: %w", field.name, i, err)
			}
			values[i] = normalizeScalar(out)
		}

		if err := t.SetColumn(field.name, values); err != nil {
			return nil, fmt.Errorf("derived field %q: %w", field.name, err)
		}
	}
	return t, nil
}

// compileFormula compiles without a typed env: column values are only known
// per row, so static typing would reject valid arithmetic. Identifiers were
// already checked against the table's columns before this runs.
func compileFormula(formula string) (*vm.Program, error) {
	return expr.Compile(formula, expr.AllowUndefinedVariables())
}

// formulaReferences parses the formula and collects referenced identifiers.
// Function callees (e.g. the "abs" in abs(x)) are not column references.
func formulaReferences(formula string) ([]string, error) {
	tree, err := parser.Parse(formula)
	if err != nil {
		return nil, err
	}

	callees := map[string]bool{}
	ast.Walk(&tree.Node, visitorFunc(func(node *ast.Node) {
		if call, ok := (*node).(*ast.CallNode); ok {
			if id, ok := call.Callee.(*ast.IdentifierNode); ok {
				callees[id.Value] = true
			}
		}
	}))

	seen := map[string]bool{}
	var refs []string
	ast.Walk(&tree.Node, visitorFunc(func(node *ast.Node) {
		id, ok := (*node).(*ast.IdentifierNode)
		if !ok || callees[id.Value] || seen[id.Value] {
			return
		}
		seen[id.Value] = true
		refs = append(refs, id.Value)
	}))
	return refs, nil
}

type visitorFunc func(node *ast.Node)

func (f visitorFunc) Visit(node *ast.Node) { f(node) }

// normalizeScalar maps evaluation results onto the table's scalar set.
func normalizeScalar(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float32:
		return float64(n)
	case uint64:
		return int64(n)
	}
	return v
}
