// Package registry provides the aggregate-function registry shared by every
// aggregation mode (grouped aggregation, bare aggregation, pivoting).
//
// Functions register by name; the engine resolves names through Lookup and
// treats unknown names as fatal configuration errors. New aggregates can be
// added without touching the engine:
//
//	func init() {
//	    registry.Register("p95", percentile95)
//	}
//
// Built-in functions (sum, mean, count, min, max, ...) are registered in
// builtins.go.
package registry

import (
	"sort"
	"sync"
)

// Func computes one scalar aggregate over a column's values. Implementations
// must tolerate nil cells (missing values) and non-numeric cells; by
// convention numeric aggregates skip them.
type Func func(values []any) any

var (
	mu    sync.RWMutex
	funcs = make(map[string]Func)
)

// Register registers an aggregate function by name. Registering an already
// registered name overwrites the previous function. Safe for concurrent use;
// typically called from init() functions.
func Register(name string, fn Func) {
	mu.Lock()
	defer mu.Unlock()
	funcs[name] = fn
}

// Lookup resolves an aggregate function by name.
func Lookup(name string) (Func, bool) {
	mu.RLock()
	defer mu.RUnlock()
	fn, ok := funcs[name]
	return fn, ok
}

// Names returns the registered function names, sorted, for diagnostics.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
