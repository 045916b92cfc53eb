// Package export serializes the final table to its destinations: a
// human-readable console rendering, CSV or XLSX files, or a line of JSON
// records on stdout for machine consumers.
package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/xuri/excelize/v2"

	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/logger"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/pathutil"
	"github.com/visualman2001/Reporting-dinamico-y-analisis-de-datos/internal/table"
)

const utf8BOM = "\ufeff"

// indexColumn is the name the row labels take in every serialized form.
const indexColumn = "index"

// Options selects the output channels.
type Options struct {
	// Destination is a .csv or .xlsx path, any other non-empty value for a
	// JSON file, or empty for stdout-only JSON.
	Destination string
	// Human renders the table to stdout instead of the JSON line. File
	// destinations are still written.
	Human bool
	// EncodeBase64 replaces an .xlsx file with one line of base64 on
	// stdout; the file is deleted after encoding.
	EncodeBase64 bool
}

// Exporter writes a table per its Options. Stdout is injectable for tests
// and defaults to os.Stdout.
type Exporter struct {
	opts   Options
	stdout io.Writer
}

// New creates an exporter.
func New(opts Options) *Exporter {
	return &Exporter{opts: opts, stdout: os.Stdout}
}

// Export writes the table to the configured channels. The human rendering,
// when enabled, always comes first.
func (e *Exporter) Export(ctx context.Context, t *table.Table) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if e.opts.Human {
		e.renderConsole(t)
	}

	dest := e.opts.Destination
	if dest != "" {
		// The destination may be created and, in base64 mode, later
		// deleted; traversal segments are rejected before either happens.
		if err := pathutil.ValidateFilePath(dest); err != nil {
			return fmt.Errorf("destination: %w", err)
		}
	}
	switch strings.ToLower(filepath.Ext(dest)) {
	case ".csv":
		return e.writeCSV(t, dest)
	case ".xlsx":
		if err := e.writeXLSX(t, dest); err != nil {
			return err
		}
		if e.opts.EncodeBase64 {
			return e.encodeAndRemove(dest)
		}
		return nil
	default:
		// The human rendering replaces the JSON channel entirely; file
		// formats above are written in both modes.
		if e.opts.Human {
			return nil
		}
		return e.writeJSON(t, dest)
	}
}

// renderConsole prints the table with the row labels as the first column.
func (e *Exporter) renderConsole(t *table.Table) {
	w := tablewriter.NewWriter(e.stdout)
	w.SetHeader(append([]string{indexColumn}, t.Columns()...))
	w.SetAutoFormatHeaders(false)
	w.SetAutoWrapText(false)

	index := t.Index()
	for i := 0; i < t.Len(); i++ {
		row := make([]string, 0, t.Width()+1)
		row = append(row, formatCell(index[i]))
		for _, name := range t.Columns() {
			col, _ := t.Column(name)
			row = append(row, formatCell(col[i]))
		}
		w.Append(row)
	}
	w.Render()
}

func (e *Exporter) writeCSV(t *table.Table, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %q: %w", dest, err)
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return fmt.Errorf("writing %q: %w", dest, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{indexColumn}, t.Columns()...)); err != nil {
		return fmt.Errorf("writing %q: %w", dest, err)
	}
	index := t.Index()
	for i := 0; i < t.Len(); i++ {
		row := make([]string, 0, t.Width()+1)
		row = append(row, formatCell(index[i]))
		for _, name := range t.Columns() {
			col, _ := t.Column(name)
			row = append(row, formatCell(col[i]))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing %q: %w", dest, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %q: %w", dest, err)
	}
	logger.Info("csv written", "path", dest, "rows", t.Len())
	return nil
}

func (e *Exporter) writeXLSX(t *table.Table, dest string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := make([]any, 0, t.Width()+1)
	header = append(header, indexColumn)
	for _, name := range t.Columns() {
		header = append(header, name)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing %q: %w", dest, err)
	}

	index := t.Index()
	for i := 0; i < t.Len(); i++ {
		row := make([]any, 0, t.Width()+1)
		row = append(row, index[i])
		for _, name := range t.Columns() {
			col, _ := t.Column(name)
			row = append(row, col[i])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("writing %q: %w", dest, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %q: %w", dest, err)
		}
	}

	if err := f.SaveAs(dest); err != nil {
		return fmt.Errorf("saving %q: %w", dest, err)
	}
	logger.Info("xlsx written", "path", dest, "rows", t.Len())
	return nil
}

// writeJSON prints one line of records to stdout and, when a destination
// was given, writes the same document to a .json file.
func (e *Exporter) writeJSON(t *table.Table, dest string) error {
	doc, err := marshalRecords(t)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(e.stdout, string(doc)); err != nil {
		return fmt.Errorf("writing records to stdout: %w", err)
	}

	if dest == "" {
		return nil
	}
	path := jsonSibling(dest)
	if err := os.WriteFile(path, append(doc, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	logger.Info("json written", "path", path, "rows", t.Len())
	return nil
}

// jsonSibling swaps the destination's extension for .json (salida.txt
// becomes salida.json, extensionless paths just gain it).
func jsonSibling(dest string) string {
	return strings.TrimSuffix(dest, filepath.Ext(dest)) + ".json"
}

// marshalRecords builds the array-of-records document by hand so fields
// keep the table's column order, with the row label first.
func marshalRecords(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	index := t.Index()
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		if err := writeField(&buf, indexColumn, index[i]); err != nil {
			return nil, err
		}
		for _, name := range t.Columns() {
			buf.WriteByte(',')
			col, _ := t.Column(name)
			if err := writeField(&buf, name, col[i]); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, name string, value any) error {
	key, err := json.Marshal(name)
	if err != nil {
		return fmt.Errorf("encoding record field %q: %w", name, err)
	}
	val, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding record field %q: %w", name, err)
	}
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}

// encodeAndRemove replaces the written workbook with a base64 line on
// stdout. A failed deletion is a warning, not a failure.
func (e *Exporter) encodeAndRemove(dest string) error {
	raw, err := os.ReadFile(dest)
	if err != nil {
		return fmt.Errorf("reading %q for encoding: %w", dest, err)
	}
	if _, err := fmt.Fprintln(e.stdout, base64.StdEncoding.EncodeToString(raw)); err != nil {
		return fmt.Errorf("writing encoded workbook: %w", err)
	}
	if err := os.Remove(dest); err != nil {
		logger.Warn("could not remove encoded workbook", "path", dest, "error", err)
	}
	return nil
}

func formatCell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
