// Package engine implements the transformation stages of the frames
// pipeline: derived-field computation, predicate filtering, grouping/
// aggregation/pivoting, sorting and numeric rounding.
//
// Every stage implements the Stage interface and is constructed from its
// slice of the job specification. Stages are pure with respect to external
// state: they consume a table and produce a table.
package engine

import (
	"context"
	"errors"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/table"
)

// Stage transforms a table. Implementations must honor context
// cancellation between row batches for large tables.
type Stage interface {
	// Apply transforms the input table and returns the result.
	Apply(ctx context.Context, t *table.Table) (*table.Table, error)
}

// Fatal pipeline-configuration errors. Any of these aborts the entire run;
// there are no partial results.
var (
	// ErrUnknownField is returned when a specification references a column
	// the table does not have.
	ErrUnknownField = errors.New("unknown field")

	// ErrFormulaSyntax is returned when a derived-field formula does not
	// parse or compile.
	ErrFormulaSyntax = errors.New("formula syntax error")

	// ErrUnknownAggregate is returned when an aggregation names a function
	// that is not registered.
	ErrUnknownAggregate = errors.New("unknown aggregate function")
)
