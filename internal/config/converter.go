package config

import (
	"fmt"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/pkg/job"
)

// ConvertToJob converts a parsed job document to a Job. The document is
// expected to have been validated against the schema first; conversion
// still defends against shape surprises so it can be used standalone.
func ConvertToJob(data map[string]interface{}) (*job.Job, error) {
	if data == nil {
		return nil, fmt.Errorf("job document is nil")
	}

	origin, ok := data["origin"].(string)
	if !ok || origin == "" {
		return nil, fmt.Errorf("missing required field 'origin'")
	}

	j := &job.Job{Origin: origin}

	var err error
	if j.GroupBy, err = stringList(data["groupBy"], "groupBy"); err != nil {
		return nil, err
	}
	if j.Aggregations, err = convertAggregations(data["aggregations"]); err != nil {
		return nil, err
	}
	if j.Derived, err = convertDerived(data["derived"]); err != nil {
		return nil, err
	}
	if j.Filter, err = convertClauses(data["filter"], "filter"); err != nil {
		return nil, err
	}
	if j.PostFilter, err = convertClauses(data["postFilter"], "postFilter"); err != nil {
		return nil, err
	}
	if j.Sort, err = convertSort(data["sort"]); err != nil {
		return nil, err
	}
	if j.Pivot, err = convertPivot(data["pivot"]); err != nil {
		return nil, err
	}

	if dest, ok := data["destination"].(string); ok && !job.IsNullText(dest) {
		j.Destination = dest
	}
	if human, ok := data["human"].(bool); ok {
		j.Human = human
	}
	if enc, ok := data["encodeBase64"].(bool); ok {
		j.EncodeBase64 = enc
	}
	j.Decimals = convertDecimals(data["decimals"])

	return j, nil
}

// stringList accepts a single string or a list of strings.
func stringList(v interface{}, field string) ([]string, error) {
	switch value := v.(type) {
	case nil:
		return nil, nil
	case string:
		if value == "" {
			return nil, nil
		}
		return []string{value}, nil
	case []interface{}:
		out := make([]string, 0, len(value))
		for i, item := range value {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid %s[%d]: expected string, got %T", field, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("invalid %s: expected string or list of strings, got %T", field, v)
	}
}

func recordList(v interface{}, field string) ([]map[string]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid %s: expected a list, got %T", field, v)
	}
	out := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid %s[%d]: expected a mapping, got %T", field, i, item)
		}
		out = append(out, m)
	}
	return out, nil
}

func convertAggregations(v interface{}) ([]job.Aggregation, error) {
	records, err := recordList(v, "aggregations")
	if err != nil {
		return nil, err
	}
	var aggs []job.Aggregation
	for i, record := range records {
		field, ok := record["field"].(string)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid aggregations[%d]: missing field", i)
		}
		funcs, err := stringList(record["funcs"], fmt.Sprintf("aggregations[%d].funcs", i))
		if err != nil {
			return nil, err
		}
		if len(funcs) == 0 {
			return nil, fmt.Errorf("invalid aggregations[%d]: missing funcs", i)
		}
		aggs = append(aggs, job.Aggregation{Field: field, Funcs: funcs})
	}
	return aggs, nil
}

func convertDerived(v interface{}) ([]job.DerivedField, error) {
	records, err := recordList(v, "derived")
	if err != nil {
		return nil, err
	}
	var fields []job.DerivedField
	for i, record := range records {
		name, ok := record["name"].(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid derived[%d]: missing name", i)
		}
		formula, ok := record["formula"].(string)
		if !ok || formula == "" {
			return nil, fmt.Errorf("invalid derived[%d]: missing formula", i)
		}
		fields = append(fields, job.DerivedField{Name: name, Formula: formula})
	}
	return fields, nil
}

func convertClauses(v interface{}, field string) ([]job.FilterClause, error) {
	records, err := recordList(v, field)
	if err != nil {
		return nil, err
	}
	var clauses []job.FilterClause
	for i, record := range records {
		name, ok := record["field"].(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid %s[%d]: missing field", field, i)
		}
		op, ok := record["op"].(string)
		if !ok || op == "" {
			return nil, fmt.Errorf("invalid %s[%d]: missing op", field, i)
		}
		value, ok := record["value"]
		if !ok {
			return nil, fmt.Errorf("invalid %s[%d]: missing value", field, i)
		}
		clauses = append(clauses, job.FilterClause{Field: name, Op: job.NormalizeOp(op), Operand: value})
	}
	return clauses, nil
}

func convertSort(v interface{}) ([]job.SortKey, error) {
	records, err := recordList(v, "sort")
	if err != nil {
		return nil, err
	}
	var keys []job.SortKey
	for i, record := range records {
		field, ok := record["field"].(string)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid sort[%d]: missing field", i)
		}
		desc, _ := record["desc"].(bool)
		keys = append(keys, job.SortKey{Field: field, Desc: desc})
	}
	return keys, nil
}

func convertPivot(v interface{}) (*job.PivotSpec, error) {
	if v == nil {
		return nil, nil
	}
	record, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid pivot: expected a mapping, got %T", v)
	}

	spec := &job.PivotSpec{}
	var err error
	if spec.Index, err = stringList(record["index"], "pivot.index"); err != nil {
		return nil, err
	}
	if spec.Columns, err = stringList(record["columns"], "pivot.columns"); err != nil {
		return nil, err
	}
	if spec.Values, err = stringList(record["values"], "pivot.values"); err != nil {
		return nil, err
	}
	if len(spec.Index) == 0 || len(spec.Columns) == 0 || len(spec.Values) == 0 {
		return nil, fmt.Errorf("invalid pivot: index, columns and values are all required")
	}
	if fn, ok := record["aggfunc"].(string); ok {
		spec.Func = fn
	}
	if fill, ok := record["fillValue"]; ok {
		spec.FillValue = fill
	}
	return spec, nil
}

// convertDecimals accepts any numeric shape and truncates it, matching the
// CLI's float-then-truncate behavior. Anything else is 0.
func convertDecimals(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
