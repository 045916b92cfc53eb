package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/logger"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/table"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/pkg/job"
)

// Filter applies an ordered conjunction of per-field predicates. The same
// stage serves as the pre-aggregation filter and the post-aggregation
// filter; the two only differ in where the executor places them.
//
// Unrecognized operators are dropped with a warning so older job
// specifications keep working when new operators appear. This is a lenient
// extension policy: a typo'd operator filters nothing.
type Filter struct {
	clauses []job.FilterClause
}

// NewFilter creates a filter stage. A nil or empty clause list is a no-op
// pass-through.
func NewFilter(clauses []job.FilterClause) *Filter {
	return &Filter{clauses: clauses}
}

// Apply evaluates each clause in declaration order against the rows that
// survived the previous clause.
func (f *Filter) Apply(ctx context.Context, t *table.Table) (*table.Table, error) {
	for _, clause := range f.clauses {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		values, ok := t.Column(clause.Field)
		if !ok {
			return nil, fmt.Errorf("filter: %w: %q", ErrUnknownField, clause.Field)
		}

		pred, err := buildPredicate(clause)
		if err != nil {
			return nil, err
		}
		if pred == nil {
			logger.Warn("unrecognized filter operator; predicate dropped",
				"field", clause.Field,
				"operator", clause.Op,
			)
			continue
		}

		matched := make([]int, 0, len(values))
		for i, v := range values {
			if pred(v) {
				matched = append(matched, i)
			}
		}
		t = t.Select(matched)
	}
	return t, nil
}

// buildPredicate turns one clause into a per-value predicate. A nil
// predicate (with nil error) means the operator is unrecognized.
func buildPredicate(clause job.FilterClause) (func(any) bool, error) {
	operand := clause.Operand

	switch clause.Op {
	case "==":
		return func(v any) bool { return valuesEqual(v, operand) }, nil
	case "!=":
		return func(v any) bool { return !valuesEqual(v, operand) }, nil
	case ">":
		return orderedPredicate(operand, func(c int) bool { return c > 0 }), nil
	case "<":
		return orderedPredicate(operand, func(c int) bool { return c < 0 }), nil
	case ">=":
		return orderedPredicate(operand, func(c int) bool { return c >= 0 }), nil
	case "<=":
		return orderedPredicate(operand, func(c int) bool { return c <= 0 }), nil
	case "in", "not in":
		list, ok := operand.([]any)
		if !ok {
			return nil, fmt.Errorf("filter: operator %q on field %q requires a list operand, got %T",
				clause.Op, clause.Field, operand)
		}
		negate := clause.Op == "not in"
		return func(v any) bool {
			for _, candidate := range list {
				if valuesEqual(v, candidate) {
					return !negate
				}
			}
			return negate
		}, nil
	case "contains":
		return textPredicate(operand, strings.Contains), nil
	case "startswith":
		return textPredicate(operand, strings.HasPrefix), nil
	case "endswith":
		return textPredicate(operand, strings.HasSuffix), nil
	}
	return nil, nil
}

func orderedPredicate(operand any, accept func(int) bool) func(any) bool {
	return func(v any) bool {
		c, ok := compareOrdered(v, operand)
		if !ok {
			return false
		}
		return accept(c)
	}
}

// textPredicate coerces the cell to text before matching; nil cells never
// match and never raise.
func textPredicate(operand any, match func(s, sub string) bool) func(any) bool {
	needle := fmt.Sprint(operand)
	return func(v any) bool {
		if v == nil {
			return false
		}
		return match(fmt.Sprint(v), needle)
	}
}
