// Package factory assembles an executor from a job specification. It
// centralizes the wiring rules: which stages a job actually needs, and the
// discard of a post-aggregation filter when no grouping or pivot will run.
package factory

import (
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/engine"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/export"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/logger"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/runtime"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/source"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/pkg/job"
)

// BuildExecutor wires the stages a job calls for. A formula that fails to
// parse surfaces here, before any data is read.
func BuildExecutor(j *job.Job) (*runtime.Executor, error) {
	cfg := runtime.Config{
		Origin:   j.Origin,
		Resolver: source.NewResolver(),
		Exporter: export.New(export.Options{
			Destination:  j.Destination,
			Human:        j.Human,
			EncodeBase64: j.EncodeBase64,
		}),
	}

	if len(j.Derived) > 0 {
		derive, err := engine.NewDerive(j.Derived)
		if err != nil {
			return nil, err
		}
		cfg.Derive = derive
	}
	if len(j.Filter) > 0 {
		cfg.PreFilter = engine.NewFilter(j.Filter)
	}

	aggregate := engine.NewAggregate(j.GroupBy, j.Aggregations, j.Pivot)
	if len(j.GroupBy) > 0 || len(j.Aggregations) > 0 || j.Pivot != nil {
		cfg.Aggregate = aggregate
	}

	if j.Decimals != 0 {
		cfg.Round = engine.NewRound(j.Decimals)
	}

	// A post-aggregation filter only means something when rows were
	// regrouped; otherwise it is dropped here, before execution.
	if len(j.PostFilter) > 0 {
		if aggregate.Grouped() {
			cfg.PostFilter = engine.NewFilter(j.PostFilter)
		} else {
			logger.Warn("post-aggregation filter discarded: no grouping or pivot configured",
				"clauses", len(j.PostFilter))
		}
	}

	if len(j.Sort) > 0 {
		cfg.Sort = engine.NewSort(j.Sort)
	}

	return runtime.NewExecutor(cfg), nil
}
