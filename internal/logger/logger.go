// Package logger provides structured logging for the frames runtime.
// It wraps the standard log/slog package so every component logs with
// consistent field names (snake_case).
//
// Log records go to stderr as JSON: stdout is reserved for the data channel
// (JSON results, base64 artifacts, the human-readable table). Error-level
// records can additionally be appended to an error log file, mirroring the
// append-only error log the batch callers expect.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

var (
	mu sync.Mutex

	// Logger is the default logger instance.
	Logger *slog.Logger

	level     = slog.LevelInfo
	errorFile *os.File
)

func init() {
	rebuild()
}

// rebuild reassembles the handler chain. Callers hold mu.
func rebuild() {
	handlers := []slog.Handler{
		slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}
	if errorFile != nil {
		handlers = append(handlers, slog.NewJSONHandler(errorFile, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}
	Logger = slog.New(fanoutHandler(handlers))
}

// SetLevel configures the logging level.
func SetLevel(l slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
	rebuild()
}

// AttachErrorFile appends error-level records to the given file in addition
// to stderr. The file is opened append-only and kept open for the life of
// the process (one batch run).
func AttachErrorFile(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening error log %s: %w", path, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if errorFile != nil {
		errorFile.Close()
	}
	errorFile = f
	rebuild()
	return nil
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// WithStage returns a logger with pipeline stage context.
func WithStage(stage string) *slog.Logger {
	return Logger.With("stage", stage)
}

// fanoutHandler duplicates records to every wrapped handler that accepts
// the record's level.
type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, hh := range h {
		if hh.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, hh := range h {
		if !hh.Enabled(ctx, r.Level) {
			continue
		}
		if err := hh.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, hh := range h {
		out[i] = hh.WithAttrs(attrs)
	}
	return out
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, hh := range h {
		out[i] = hh.WithGroup(name)
	}
	return out
}
