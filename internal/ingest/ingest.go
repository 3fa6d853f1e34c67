// Package ingest decodes spreadsheet-shaped detection exports into raw
// tables. The aggregation core never opens files; this layer feeds it.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/lvonguyen/reportforge/internal/report"
)

// ReadCSV decodes a CSV stream into a raw table. The first row is the
// header; header cells are trimmed and stripped of a UTF-8 BOM. Ragged data
// rows are tolerated, matching what spreadsheet exports actually produce.
func ReadCSV(r io.Reader) (*report.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv input has no header row")
	}

	t := &report.Table{Columns: cleanHeader(rows[0])}
	for _, row := range rows[1:] {
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadXLSX decodes the first sheet of an XLSX stream into a raw table.
func ReadXLSX(r io.Reader) (*report.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx input has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("xlsx sheet %q has no header row", sheets[0])
	}

	t := &report.Table{Columns: cleanHeader(rows[0])}
	for _, row := range rows[1:] {
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Read decodes a stream, dispatching on the extension of name: .csv or
// .xlsx. Upload handlers use this with the client-supplied filename.
func Read(r io.Reader, name string) (*report.Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported export format %q", filepath.Ext(name))
	}
}

// ReadFile opens and decodes one export file.
func ReadFile(path string) (*report.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, path)
}

// Period derives a month label from an export filename: the base name with
// the extension stripped, so "June 2025.csv" tags its rows "June 2025".
func Period(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\uFEFF")
		out[i] = strings.TrimSpace(h)
	}
	return out
}
