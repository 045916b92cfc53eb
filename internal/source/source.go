// Package source materializes a job's origin into an in-memory table.
// An origin is a CSV path, an XLSX path, SQL text, a bare table name, or
// an already-built table handed over by the caller.
package source

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/database"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/logger"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/table"
)

// ErrInvalidSourceKind is returned when the origin is neither a string
// nor a table.
var ErrInvalidSourceKind = errors.New("invalid source kind")

const utf8BOM = "\ufeff"

// Resolver loads tables from the supported origin kinds.
type Resolver struct {
	// OpenDatabase supplies the connection for SQL origins. It returns the
	// handle and the driver name used for error classification.
	OpenDatabase func(ctx context.Context) (*sql.DB, string, error)
}

// NewResolver creates a resolver whose SQL origins connect using the
// FRAMES_DSN / FRAMES_DRIVER environment.
func NewResolver() *Resolver {
	return &Resolver{
		OpenDatabase: func(ctx context.Context) (*sql.DB, string, error) {
			cfg, err := database.FromEnv()
			if err != nil {
				return nil, "", err
			}
			db, err := database.Open(ctx, cfg)
			if err != nil {
				return nil, "", err
			}
			return db, cfg.Driver, nil
		},
	}
}

// Resolve materializes the origin. Strings dispatch on their extension:
// .csv and .xlsx are read as files, anything else is sent to the database.
func (r *Resolver) Resolve(ctx context.Context, origin any) (*table.Table, error) {
	switch src := origin.(type) {
	case *table.Table:
		logger.Debug("origin is an in-memory table", "rows", src.Len())
		return src, nil
	case string:
		switch strings.ToLower(filepath.Ext(src)) {
		case ".csv":
			return readCSV(src)
		case ".xlsx":
			return readXLSX(src)
		default:
			return r.readSQL(ctx, src)
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidSourceKind, origin)
	}
}

func readCSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv %q: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv %q: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("reading csv %q: no header row", path)
	}

	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	tbl, err := fromStringRows(header, rows[1:])
	if err != nil {
		return nil, fmt.Errorf("reading csv %q: %w", path, err)
	}
	logger.Info("csv origin loaded", "path", path, "rows", tbl.Len(), "columns", tbl.Width())
	return tbl, nil
}

func readXLSX(path string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening xlsx %q: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("reading xlsx %q: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading xlsx %q: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("reading xlsx %q: sheet %q has no header row", path, sheets[0])
	}

	tbl, err := fromStringRows(rows[0], rows[1:])
	if err != nil {
		return nil, fmt.Errorf("reading xlsx %q: %w", path, err)
	}
	logger.Info("xlsx origin loaded", "path", path, "sheet", sheets[0], "rows", tbl.Len(), "columns", tbl.Width())
	return tbl, nil
}

// fromStringRows builds a table from a header and text rows, coercing each
// cell. Short rows are padded with nulls, extra cells are dropped.
func fromStringRows(header []string, rows [][]string) (*table.Table, error) {
	data := make(map[string][]any, len(header))
	for _, name := range header {
		data[name] = make([]any, len(rows))
	}
	for i, row := range rows {
		for j, name := range header {
			if j < len(row) {
				data[name][i] = coerceScalar(row[j])
			}
		}
	}
	return table.FromColumns(header, data)
}

// coerceScalar interprets a text cell: empty is null, then integer, float
// and boolean are tried in order, anything else stays a string.
func coerceScalar(s string) any {
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// readSQL runs the origin against the configured database. The connection
// lives only for the duration of the read.
func (r *Resolver) readSQL(ctx context.Context, origin string) (*table.Table, error) {
	db, driver, err := r.OpenDatabase(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := sqlText(origin)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, database.Classify(err, driver, "query", query)
	}
	defer rows.Close()

	tbl, err := rowsToTable(rows)
	if err != nil {
		return nil, database.Classify(err, driver, "scan", query)
	}
	logger.Info("sql origin loaded", "driver", driver, "rows", tbl.Len(), "columns", tbl.Width())
	return tbl, nil
}

// sqlText treats any origin containing whitespace as literal SQL (queries,
// CTEs, stored-procedure calls); only a bare identifier is wrapped into a
// whole-table read.
func sqlText(origin string) string {
	trimmed := strings.TrimSpace(origin)
	if strings.ContainsAny(trimmed, " \t\r\n") {
		return origin
	}
	return "SELECT * FROM " + database.QuoteIdentifier(trimmed)
}

func rowsToTable(rows *sql.Rows) (*table.Table, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("getting column names: %w", err)
	}

	data := make(map[string][]any, len(columns))
	n := 0
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, col := range columns {
			data[col] = append(data[col], convertDatabaseValue(values[i]))
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	for _, col := range columns {
		if data[col] == nil {
			data[col] = []any{}
		}
	}
	return table.FromColumns(columns, data)
}

// convertDatabaseValue normalizes driver types for the pipeline.
func convertDatabaseValue(val any) any {
	switch v := val.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	default:
		return v
	}
}
