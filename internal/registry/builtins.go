package registry

import (
	"fmt"
	"math"
	"sort"
)

// Built-in aggregate functions. Numeric aggregates skip nil and non-numeric
// cells; count counts non-nil cells of any type. Aggregates over an empty
// set yield nil, except sum which yields 0 (sum over nothing is zero).

func init() {
	Register("sum", aggSum)
	Register("mean", aggMean)
	Register("count", aggCount)
	Register("min", aggMin)
	Register("max", aggMax)
	Register("median", aggMedian)
	Register("std", aggStd)
	Register("first", aggFirst)
	Register("last", aggLast)
	Register("nunique", aggNunique)
}

// numericValues extracts the numeric cells as float64.
func numericValues(values []any) []float64 {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := asFloat(v); ok {
			nums = append(nums, f)
		}
	}
	return nums
}

func asFloat(v any) (float64, bool) {
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
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func aggSum(values []any) any {
	total := 0.0
	for _, f := range numericValues(values) {
		total += f
	}
	return total
}

func aggMean(values []any) any {
	nums := numericValues(values)
	if len(nums) == 0 {
		return nil
	}
	total := 0.0
	for _, f := range nums {
		total += f
	}
	return total / float64(len(nums))
}

func aggCount(values []any) any {
	n := int64(0)
	for _, v := range values {
		if v != nil {
			n++
		}
	}
	return n
}

func aggMin(values []any) any {
	return extremum(values, func(a, b float64) bool { return a < b }, func(a, b string) bool { return a < b })
}

func aggMax(values []any) any {
	return extremum(values, func(a, b float64) bool { return a > b }, func(a, b string) bool { return a > b })
}

// extremum prefers numeric comparison; a column with no numeric cells falls
// back to lexicographic comparison of the textual values.
func extremum(values []any, numBetter func(a, b float64) bool, strBetter func(a, b string) bool) any {
	nums := numericValues(values)
	if len(nums) > 0 {
		best := nums[0]
		for _, f := range nums[1:] {
			if numBetter(f, best) {
				best = f
			}
		}
		return best
	}

	var best string
	found := false
	for _, v := range values {
		if v == nil {
			continue
		}
		s := fmt.Sprint(v)
		if !found || strBetter(s, best) {
			best = s
			found = true
		}
	}
	if !found {
		return nil
	}
	return best
}

func aggMedian(values []any) any {
	nums := numericValues(values)
	if len(nums) == 0 {
		return nil
	}
	sort.Float64s(nums)
	mid := len(nums) / 2
	if len(nums)%2 == 1 {
		return nums[mid]
	}
	return (nums[mid-1] + nums[mid]) / 2
}

// aggStd is the sample standard deviation (n-1 denominator).
func aggStd(values []any) any {
	nums := numericValues(values)
	if len(nums) < 2 {
		return nil
	}
	mean := 0.0
	for _, f := range nums {
		mean += f
	}
	mean /= float64(len(nums))

	variance := 0.0
	for _, f := range nums {
		d := f - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(nums)-1))
}

func aggFirst(values []any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func aggLast(values []any) any {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] != nil {
			return values[i]
		}
	}
	return nil
}

func aggNunique(values []any) any {
	seen := make(map[string]struct{})
	for _, v := range values {
		if v == nil {
			continue
		}
		seen[fmt.Sprintf("%T|%v", v, v)] = struct{}{}
	}
	return int64(len(seen))
}
