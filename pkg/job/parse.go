package job

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// The CLI passes structured specifications as literal text, e.g.
// {'amt': ['>=', 5]} or {'precio': 'desc'}. The text is parsed with the
// yaml.v3 node API: a safe literal parser that preserves mapping
// declaration order and understands flow-style dict/list notation. It is
// never evaluated as code.

// IsNullText reports whether a textual argument denotes an absent
// specification.
func IsNullText(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "none", "null", "~":
		return true
	}
	return false
}

// ParseBool interprets a textual boolean flag. Accepted truthy spellings
// are "true", "1" and "yes" (case-insensitive); everything else is false.
func ParseBool(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// ParseDecimals parses the decimal-precision argument. The value is parsed
// as a float first and then truncated, so "2.7" yields 2. Unparseable input
// yields 0 (the rounding no-op), never an error.
func ParseDecimals(text string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// ParseFields parses a field list such as ['cat', 'zona']. A bare scalar is
// accepted as a single-field list.
func ParseFields(text string) ([]string, error) {
	node, err := parseLiteral(text, "field list")
	if err != nil || node == nil {
		return nil, err
	}

	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		fields := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("field list: expected field name, got %s", kindName(item.Kind))
			}
			fields = append(fields, item.Value)
		}
		return fields, nil
	default:
		return nil, fmt.Errorf("field list: expected a list of field names, got %s", kindName(node.Kind))
	}
}

// ParseFilter parses a filter specification of the form
// {field: [operator, operand], ...} into ordered clauses.
// Entries that are not a two-element [operator, operand] list are dropped,
// matching the engine's lenient treatment of malformed predicates.
func ParseFilter(text string) ([]FilterClause, error) {
	node, err := parseLiteral(text, "filter spec")
	if err != nil || node == nil {
		return nil, err
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("filter spec: expected a mapping of field to [operator, operand], got %s", kindName(node.Kind))
	}

	var clauses []FilterClause
	for i := 0; i+1 < len(node.Content); i += 2 {
		field := node.Content[i].Value
		value := node.Content[i+1]
		if value.Kind != yaml.SequenceNode || len(value.Content) != 2 {
			continue
		}
		operand, err := decodeScalarTree(value.Content[1])
		if err != nil {
			return nil, fmt.Errorf("filter spec: field %q: %w", field, err)
		}
		clauses = append(clauses, FilterClause{
			Field:   field,
			Op:      NormalizeOp(value.Content[0].Value),
			Operand: operand,
		})
	}
	return clauses, nil
}

// NormalizeOp canonicalizes a filter operator for dispatch: trimmed,
// lowercase, inner whitespace collapsed ("not  in" == "not in").
func NormalizeOp(op string) string {
	return strings.Join(strings.Fields(strings.ToLower(op)), " ")
}

// ParseSort parses a sort specification of the form {field: asc|desc, ...}
// into ordered sort keys. Any direction other than "asc" sorts descending.
func ParseSort(text string) ([]SortKey, error) {
	node, err := parseLiteral(text, "sort spec")
	if err != nil || node == nil {
		return nil, err
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("sort spec: expected a mapping of field to direction, got %s", kindName(node.Kind))
	}

	var keys []SortKey
	for i := 0; i+1 < len(node.Content); i += 2 {
		dir := node.Content[i+1]
		if dir.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("sort spec: field %q: direction must be a string", node.Content[i].Value)
		}
		keys = append(keys, SortKey{
			Field: node.Content[i].Value,
			Desc:  !strings.EqualFold(strings.TrimSpace(dir.Value), "asc"),
		})
	}
	return keys, nil
}

// ParseDerived parses a derived-field specification of the form
// {name: formula, ...} into ordered derived fields.
func ParseDerived(text string) ([]DerivedField, error) {
	node, err := parseLiteral(text, "derived spec")
	if err != nil || node == nil {
		return nil, err
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("derived spec: expected a mapping of field to formula, got %s", kindName(node.Kind))
	}

	var fields []DerivedField
	for i := 0; i+1 < len(node.Content); i += 2 {
		formula := node.Content[i+1]
		if formula.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("derived spec: field %q: formula must be a string", node.Content[i].Value)
		}
		fields = append(fields, DerivedField{
			Name:    node.Content[i].Value,
			Formula: formula.Value,
		})
	}
	return fields, nil
}

// ParseAggregations parses an aggregation specification of the form
// {field: func} or {field: [func, ...]} into ordered aggregations.
func ParseAggregations(text string) ([]Aggregation, error) {
	node, err := parseLiteral(text, "aggregation spec")
	if err != nil || node == nil {
		return nil, err
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("aggregation spec: expected a mapping of field to function(s), got %s", kindName(node.Kind))
	}

	var aggs []Aggregation
	for i := 0; i+1 < len(node.Content); i += 2 {
		field := node.Content[i].Value
		funcs, err := scalarOrList(node.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("aggregation spec: field %q: %w", field, err)
		}
		aggs = append(aggs, Aggregation{Field: field, Funcs: funcs})
	}
	return aggs, nil
}

// ParsePivot parses a pivot specification of the form
// {index: [...], columns: [...], values: [...], aggfunc: name, fill_value: v}.
// Unknown keys are rejected.
func ParsePivot(text string) (*PivotSpec, error) {
	node, err := parseLiteral(text, "pivot spec")
	if err != nil || node == nil {
		return nil, err
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("pivot spec: expected a mapping, got %s", kindName(node.Kind))
	}

	spec := &PivotSpec{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]
		switch key {
		case "index":
			spec.Index, err = scalarOrList(value)
		case "columns":
			spec.Columns, err = scalarOrList(value)
		case "values":
			spec.Values, err = scalarOrList(value)
		case "aggfunc":
			if value.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("pivot spec: aggfunc must be a function name")
			}
			spec.Func = strings.ToLower(strings.TrimSpace(value.Value))
		case "fill_value", "fillValue":
			spec.FillValue, err = decodeScalarTree(value)
		default:
			return nil, fmt.Errorf("pivot spec: unknown key %q", key)
		}
		if err != nil {
			return nil, fmt.Errorf("pivot spec: key %q: %w", key, err)
		}
	}
	return spec, nil
}

// parseLiteral parses the literal text into its root YAML node.
// Null-ish text yields (nil, nil).
func parseLiteral(text, what string) (*yaml.Node, error) {
	if IsNullText(text) {
		return nil, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("%s: invalid literal: %w", what, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, nil
	}
	return root, nil
}

// scalarOrList accepts either a single scalar or a list of scalars and
// returns them as a string slice.
func scalarOrList(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("expected a scalar, got %s", kindName(item.Kind))
			}
			items = append(items, item.Value)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected a scalar or list, got %s", kindName(node.Kind))
	}
}

// decodeScalarTree decodes a node into plain Go values (string, int,
// float64, bool, nil, or nested slices/maps of those).
func decodeScalarTree(node *yaml.Node) (any, error) {
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func kindName(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "list"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
