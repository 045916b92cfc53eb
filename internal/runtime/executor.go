// Package runtime executes one job: resolve the origin, run the
// transformation stages in their fixed order, export the result.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/engine"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/logger"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/table"
)

// Error codes for execution failures.
const (
	ErrCodeSourceFailed = "SOURCE_FAILED"
	ErrCodeStageFailed  = "STAGE_FAILED"
	ErrCodeExportFailed = "EXPORT_FAILED"
)

// Execution status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrExport marks failures in the export stage. The CLI reports these as a
// tagged line and still exits cleanly, unlike transformation failures.
var ErrExport = errors.New("export failed")

// Resolver materializes a job origin into a table.
type Resolver interface {
	Resolve(ctx context.Context, origin any) (*table.Table, error)
}

// Exporter consumes the final table.
type Exporter interface {
	Export(ctx context.Context, t *table.Table) error
}

// namedStage pairs a pipeline stage with its name for instrumentation.
type namedStage struct {
	name  string
	stage engine.Stage
}

// Config carries the executor's collaborators. Any stage may be nil, in
// which case it is skipped. The post-aggregation filter must only be set
// when the aggregate stage will actually group or pivot; the executor runs
// whatever it is given.
type Config struct {
	Origin     any
	Resolver   Resolver
	Derive     *engine.Derive
	PreFilter  *engine.Filter
	Aggregate  *engine.Aggregate
	Round      *engine.Round
	PostFilter *engine.Filter
	Sort       *engine.Sort
	Exporter   Exporter
}

// Executor runs the fixed stage sequence over one origin.
type Executor struct {
	origin   any
	resolver Resolver
	stages   []namedStage
	exporter Exporter
}

// NewExecutor creates an executor with the configured stages in pipeline
// order: derive, pre-filter, aggregate, round, post-filter, sort.
func NewExecutor(cfg Config) *Executor {
	e := &Executor{
		origin:   cfg.Origin,
		resolver: cfg.Resolver,
		exporter: cfg.Exporter,
	}
	if cfg.Derive != nil {
		e.stages = append(e.stages, namedStage{"derive", cfg.Derive})
	}
	if cfg.PreFilter != nil {
		e.stages = append(e.stages, namedStage{"pre_filter", cfg.PreFilter})
	}
	if cfg.Aggregate != nil {
		e.stages = append(e.stages, namedStage{"aggregate", cfg.Aggregate})
	}
	if cfg.Round != nil {
		e.stages = append(e.stages, namedStage{"round", cfg.Round})
	}
	if cfg.PostFilter != nil {
		e.stages = append(e.stages, namedStage{"post_filter", cfg.PostFilter})
	}
	if cfg.Sort != nil {
		e.stages = append(e.stages, namedStage{"sort", cfg.Sort})
	}
	return e
}

// ExecutionError describes an execution failure.
type ExecutionError struct {
	Code    string `json:"code"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// ExecutionResult summarizes one run.
type ExecutionResult struct {
	Status      string          `json:"status"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt time.Time       `json:"completedAt"`
	RowsIn      int             `json:"rowsIn"`
	RowsOut     int             `json:"rowsOut"`
	Error       *ExecutionError `json:"error,omitempty"`
}

// Execute runs the pipeline to completion. The returned result always
// carries timing and row counts for whatever progress was made.
func (e *Executor) Execute(ctx context.Context) (*ExecutionResult, error) {
	startedAt := time.Now()
	result := &ExecutionResult{Status: StatusError, StartedAt: startedAt}
	fail := func(code, stage string, err error) (*ExecutionResult, error) {
		result.CompletedAt = time.Now()
		result.Error = &ExecutionError{Code: code, Stage: stage, Message: err.Error()}
		return result, err
	}

	if e.resolver == nil {
		return fail(ErrCodeSourceFailed, "source", errors.New("no resolver configured"))
	}
	if e.exporter == nil {
		return fail(ErrCodeExportFailed, "export", errors.New("no exporter configured"))
	}

	sourceStart := time.Now()
	current, err := e.resolver.Resolve(ctx, e.origin)
	if err != nil {
		logger.Error("source resolution failed",
			slog.String("stage", "source"),
			slog.Duration("duration", time.Since(sourceStart)),
			slog.String("error", err.Error()),
		)
		return fail(ErrCodeSourceFailed, "source", err)
	}
	result.RowsIn = current.Len()
	logger.Debug("source resolved",
		slog.String("stage", "source"),
		slog.Int("rows", current.Len()),
		slog.Int("columns", current.Width()),
		slog.Duration("duration", time.Since(sourceStart)),
	)

	for _, s := range e.stages {
		stageStart := time.Now()
		rowsBefore := current.Len()
		current, err = s.stage.Apply(ctx, current)
		duration := time.Since(stageStart)
		if err != nil {
			logger.Error("stage failed",
				slog.String("stage", s.name),
				slog.Int("input_rows", rowsBefore),
				slog.Duration("duration", duration),
				slog.String("error", err.Error()),
			)
			return fail(ErrCodeStageFailed, s.name, err)
		}
		logger.Debug("stage completed",
			slog.String("stage", s.name),
			slog.Int("input_rows", rowsBefore),
			slog.Int("output_rows", current.Len()),
			slog.Duration("duration", duration),
		)
	}
	result.RowsOut = current.Len()

	exportStart := time.Now()
	if err := e.exporter.Export(ctx, current); err != nil {
		logger.Error("export failed",
			slog.String("stage", "export"),
			slog.Int("rows", current.Len()),
			slog.Duration("duration", time.Since(exportStart)),
			slog.String("error", err.Error()),
		)
		return fail(ErrCodeExportFailed, "export", fmt.Errorf("%w: %v", ErrExport, err))
	}
	logger.Debug("export completed",
		slog.String("stage", "export"),
		slog.Int("rows", current.Len()),
		slog.Duration("duration", time.Since(exportStart)),
	)

	result.Status = StatusSuccess
	result.CompletedAt = time.Now()
	return result, nil
}
