// Package report defines the tabular data model shared by all reportforge
// aggregators: raw input tables, normalized detection records, and the named
// result tables handed back to presentation callers.
package report

import (
	"fmt"
	"strings"
	"time"
)

// Unknown is the sentinel substituted for missing or unmappable categorical
// values. Reports favor showing a row labeled Unknown over dropping data.
const Unknown = "Unknown"

// Table is a raw tabular input, typically decoded from a CSV or XLSX export.
// Rows hold one string cell per column; ragged rows are padded on access.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the cell at (row, col), or "" when the row is short.
func (t *Table) Cell(row, col int) string {
	if col < 0 || row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Record is one detection/host/ticket event normalized to the canonical
// schema. Categorical fields (Severity, Tactic, Technique, Objective,
// Country, FileName, Status) hold Unknown for an empty cell in a mapped
// column and "" when the column was absent from the input; identity fields
// (UserName, OSVersion, SensorVersion, Site, OU) stay "" when missing.
// DetectedAt is zero when the raw timestamp was absent or unparseable.
type Record struct {
	ID            string    `json:"id"`
	Hostname      string    `json:"hostname"`
	Severity      string    `json:"severity"`
	Tactic        string    `json:"tactic"`
	Technique     string    `json:"technique"`
	Objective     string    `json:"objective"`
	Country       string    `json:"country"`
	FileName      string    `json:"file_name"`
	UserName      string    `json:"user_name"`
	OSVersion     string    `json:"os_version"`
	SensorVersion string    `json:"sensor_version"`
	Site          string    `json:"site"`
	OU            string    `json:"ou"`
	Month         string    `json:"month"`
	Status        string    `json:"status"`
	DetectedAt    time.Time `json:"detected_at,omitempty"`
	RawTime       string    `json:"raw_time,omitempty"`
}

// ResultTable is a named, typed tabular output with a fixed column schema.
// The column set per table name is a compatibility contract for downstream
// pivot and chart consumers; renaming or adding a column is a breaking change.
type ResultTable struct {
	Name    string  `json:"name"`
	Columns []string `json:"columns"`
	Rows    [][]any `json:"rows"`
}

// AppendRow adds one row. The caller must supply one value per column.
func (rt *ResultTable) AppendRow(cells ...any) {
	rt.Rows = append(rt.Rows, cells)
}

// IsPlaceholder reports whether this table is the one-row degradation
// sentinel emitted when an optional data source was unavailable. Callers
// check this instead of handling an error.
func (rt *ResultTable) IsPlaceholder() bool {
	return len(rt.Columns) == 1 && rt.Columns[0] == "Message" && len(rt.Rows) == 1
}

// Placeholder builds the one-row sentinel table for a metric whose optional
// source data is absent.
func Placeholder(name, message string) *ResultTable {
	return &ResultTable{
		Name:    name,
		Columns: []string{"Message"},
		Rows:    [][]any{{message}},
	}
}

// Bundle is the named collection of result tables produced by one assembly
// invocation, together with the cleaned records it was computed from.
type Bundle struct {
	Tables  map[string]*ResultTable `json:"tables"`
	Records []Record                `json:"records"`
	Months  []string                `json:"months"`

	order []string
}

// Names returns the table names present in the bundle in the assembler's
// fixed emission order.
func (b *Bundle) Names() []string {
	return append([]string(nil), b.order...)
}

// Add registers a table under its name, keeping insertion order.
func (b *Bundle) Add(t *ResultTable) {
	if b.Tables == nil {
		b.Tables = make(map[string]*ResultTable)
	}
	if _, seen := b.Tables[t.Name]; !seen {
		b.order = append(b.order, t.Name)
	}
	b.Tables[t.Name] = t
}

// SchemaError reports required canonical fields with no matching column in
// the input. It is fatal: assembly aborts without a partial bundle.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("input schema missing required fields: %s", strings.Join(e.Missing, ", "))
}

// DataAbsentError marks an optional field that is missing or entirely empty.
// It is non-fatal: the affected metric degrades to a placeholder table.
type DataAbsentError struct {
	Field string
}

func (e *DataAbsentError) Error() string {
	return fmt.Sprintf("no %s data available", e.Field)
}
