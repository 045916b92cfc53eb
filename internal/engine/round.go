package engine

import (
	"context"
	"math"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/table"
)

// Round rounds every float column to a fixed number of decimal places using
// half-to-even (banker's) rounding. Integer and non-numeric columns are
// untouched.
//
// decimals == 0 is a documented no-op, not "round to zero decimals"; the
// callers' convention is that 0 means "leave the values alone". Negative
// precision rounds to tens, hundreds, and so on.
type Round struct {
	decimals int
}

// NewRound creates the rounding stage.
func NewRound(decimals int) *Round {
	return &Round{decimals: decimals}
}

// Apply rounds the float columns in place.
func (r *Round) Apply(ctx context.Context, t *table.Table) (*table.Table, error) {
	if r.decimals == 0 {
		return t, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	factor := math.Pow(10, float64(r.decimals))
	for _, name := range t.Columns() {
		col, _ := t.Column(name)
		changed := false
		values := make([]any, len(col))
		for i, v := range col {
			if f, ok := v.(float64); ok {
				values[i] = math.RoundToEven(f*factor) / factor
				changed = true
			} else {
				values[i] = v
			}
		}
		if changed {
			if err := t.SetColumn(name, values); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}
