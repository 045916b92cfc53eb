package engine

import (
	"fmt"
	"math"
)

// Scalar comparison with best-effort type coercion: numbers compare as
// float64 (small relative epsilon for equality), strings and bools compare
// natively, mismatched types never match. Ordering comparisons involving
// nil or incomparable types exclude the row instead of failing, in line
// with the filter engine's lenient contract.

const epsilon = 1e-9

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int16:
		return float64(n), true
	case int8:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

func numbersEqual(a, b float64) bool {
	diff := math.Abs(a - b)
	threshold := epsilon * math.Max(1.0, math.Max(math.Abs(a), math.Abs(b)))
	return diff < threshold
}

// valuesEqual reports whether two scalars are equal under coercion.
func valuesEqual(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if lf, ok := toFloat64(left); ok {
		if rf, ok := toFloat64(right); ok {
			return numbersEqual(lf, rf)
		}
		return false
	}
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			return ls == rs
		}
		return false
	}
	if lb, ok := left.(bool); ok {
		if rb, ok := right.(bool); ok {
			return lb == rb
		}
		return false
	}
	return false
}

// compareOrdered returns -1, 0 or 1 when the two scalars are comparable,
// and ok=false when they are not (nil involved, or mismatched types).
func compareOrdered(left, right any) (int, bool) {
	if left == nil || right == nil {
		return 0, false
	}
	if lf, ok := toFloat64(left); ok {
		if rf, ok := toFloat64(right); ok {
			switch {
			case numbersEqual(lf, rf):
				return 0, true
			case lf < rf:
				return -1, true
			default:
				return 1, true
			}
		}
		return 0, false
	}
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			switch {
			case ls == rs:
				return 0, true
			case ls < rs:
				return -1, true
			default:
				return 1, true
			}
		}
		return 0, false
	}
	return 0, false
}

// sortCompare is the total order used by the sort engine: nil sorts first,
// then values compare under coercion, and incomparable pairs fall back to a
// deterministic type-then-text order so the sort is always well defined.
func sortCompare(left, right any) int {
	switch {
	case left == nil && right == nil:
		return 0
	case left == nil:
		return -1
	case right == nil:
		return 1
	}

	if lb, lok := left.(bool); lok {
		if rb, rok := right.(bool); rok {
			switch {
			case lb == rb:
				return 0
			case !lb:
				return -1
			default:
				return 1
			}
		}
	}

	if c, ok := compareOrdered(left, right); ok {
		return c
	}

	lt, rt := typeRank(left), typeRank(right)
	if lt != rt {
		if lt < rt {
			return -1
		}
		return 1
	}
	ls, rs := fmt.Sprint(left), fmt.Sprint(right)
	switch {
	case ls == rs:
		return 0
	case ls < rs:
		return -1
	default:
		return 1
	}
}

func typeRank(v any) int {
	switch v.(type) {
	case bool:
		return 0
	case int64, int, int32, float64, float32:
		return 1
	case string:
		return 2
	}
	return 3
}
