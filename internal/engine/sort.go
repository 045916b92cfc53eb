package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/table"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/pkg/job"
)

// Sort performs one stable multi-key sort: the first key is primary,
// later keys break ties, each with its own direction. Rows equal on all
// keys keep their relative pre-sort order.
type Sort struct {
	keys []job.SortKey
}

// NewSort creates a sort stage. An empty key list is a no-op pass-through.
func NewSort(keys []job.SortKey) *Sort {
	return &Sort{keys: keys}
}

// Apply reorders the table's rows. Row labels travel with their rows.
func (s *Sort) Apply(ctx context.Context, t *table.Table) (*table.Table, error) {
	if len(s.keys) == 0 {
		return t, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	columns := make([][]any, len(s.keys))
	for i, key := range s.keys {
		col, ok := t.Column(key.Field)
		if !ok {
			return nil, fmt.Errorf("sort: %w: %q", ErrUnknownField, key.Field)
		}
		columns[i] = col
	}

	perm := make([]int, t.Len())
	for i := range perm {
		perm[i] = i
	}

	sort.SliceStable(perm, func(a, b int) bool {
		for i, key := range s.keys {
			c := sortCompare(columns[i][perm[a]], columns[i][perm[b]])
			if c == 0 {
				continue
			}
			if key.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	return t.Reorder(perm), nil
}
