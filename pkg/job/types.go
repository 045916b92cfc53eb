// Package job provides the public job specification types for the frames
// engine. A Job describes exactly one pipeline run: where the table comes
// from, which transformations to apply, and where the result goes.
//
// The structured specifications (filters, sort keys, derived fields,
// aggregations) are explicit ordered lists of tagged records rather than
// maps, so declaration order is preserved and operator dispatch is a closed
// switch.
package job

// Job is the complete, immutable configuration for one pipeline run.
type Job struct {
	// Origin is the data source descriptor: a path ending in .csv or .xlsx,
	// any other string (treated as a SQL statement), or an
	// already-materialized table supplied programmatically.
	Origin any `json:"origin"`

	// GroupBy lists the fields to group by (empty = no grouping).
	GroupBy []string `json:"groupBy,omitempty"`

	// Aggregations lists the aggregate computations, in declaration order.
	Aggregations []Aggregation `json:"aggregations,omitempty"`

	// Derived lists the derived-field formulas, in declaration order.
	// Later formulas may reference fields produced by earlier ones.
	Derived []DerivedField `json:"derived,omitempty"`

	// Destination is the output file path. Empty or "none" means no file.
	Destination string `json:"destination,omitempty"`

	// Pivot, when set, takes priority over GroupBy/Aggregations.
	Pivot *PivotSpec `json:"pivot,omitempty"`

	// Human selects the human-readable console rendering instead of the
	// machine channel (JSON/CSV/XLSX).
	Human bool `json:"human,omitempty"`

	// Decimals is the rounding precision for numeric columns. Zero is a
	// documented no-op, not "round to zero decimals".
	Decimals int `json:"decimals,omitempty"`

	// EncodeBase64 requests the spreadsheet artifact to be emitted as a
	// single base64 line on stdout instead of being left on disk. Only
	// meaningful together with an .xlsx destination.
	EncodeBase64 bool `json:"encodeBase64,omitempty"`

	// Filter is the pre-aggregation filter, applied clause by clause.
	Filter []FilterClause `json:"filter,omitempty"`

	// Sort is the multi-key sort specification, primary key first.
	Sort []SortKey `json:"sort,omitempty"`

	// PostFilter is applied after grouping/pivoting. It is discarded
	// entirely when neither a grouping nor a pivot step runs.
	PostFilter []FilterClause `json:"postFilter,omitempty"`
}

// FilterClause is a single field predicate: field <op> operand.
// Clauses are combined as a conjunction, in declaration order.
type FilterClause struct {
	// Field is the column the predicate applies to.
	Field string `json:"field"`
	// Op is the comparison operator, lower-cased: ==, !=, >, <, >=, <=,
	// in, not in, contains, startswith, endswith.
	Op string `json:"op"`
	// Operand is the comparison value. For in / not in it must be a list.
	Operand any `json:"value"`
}

// SortKey is one key of a stable multi-key sort.
type SortKey struct {
	Field string `json:"field"`
	// Desc selects descending order. Any direction token other than "asc"
	// sorts descending.
	Desc bool `json:"desc"`
}

// DerivedField declares a new (or overwritten) column computed from a
// formula over the existing columns.
type DerivedField struct {
	Name    string `json:"name"`
	Formula string `json:"formula"`
}

// Aggregation maps one value field to one or more aggregate function names.
type Aggregation struct {
	Field string   `json:"field"`
	Funcs []string `json:"funcs"`
}

// PivotSpec describes a cross-tabulation: rows keyed by Index fields,
// columns spanned by the distinct values of Columns fields, cells computed
// by Func over the Values fields.
type PivotSpec struct {
	Index     []string `json:"index"`
	Columns   []string `json:"columns"`
	Values    []string `json:"values"`
	Func      string   `json:"aggfunc,omitempty"`
	FillValue any      `json:"fillValue,omitempty"`
}
