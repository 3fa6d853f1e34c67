package schema

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/lvonguyen/reportforge/internal/report"
)

// =============================================================================
// Header Mapping Tests
// =============================================================================

// TestMapColumns_Aliases verifies that export header spellings resolve to
// canonical fields regardless of case, spaces, and underscores.
func TestMapColumns_Aliases(t *testing.T) {
	table := &report.Table{
		Columns: []string{"UniqueNo", "HOST NAME", "Severity_Name", "Detect MALAYSIA TIME FORMULA"},
	}

	mapping := MapColumns(table)

	tests := []struct {
		field Field
		want  int
	}{
		{FieldID, 0},
		{FieldHostname, 1},
		{FieldSeverity, 2},
		{FieldTimestamp, 3},
		{FieldCountry, -1},
	}
	for _, tt := range tests {
		if got := mapping[tt.field]; got != tt.want {
			t.Errorf("mapping[%s] = %d, want %d", tt.field, got, tt.want)
		}
	}
}

// TestMapColumns_BOMStripped verifies that a UTF-8 BOM on the first header
// does not defeat alias matching.
func TestMapColumns_BOMStripped(t *testing.T) {
	table := &report.Table{Columns: []string{"\uFEFFHostname"}}

	if got := MapColumns(table)[FieldHostname]; got != 0 {
		t.Errorf("BOM-prefixed header should map, got index %d", got)
	}
}

// =============================================================================
// Enum Normalization Tests
// =============================================================================

// TestNormalizeSeverity folds spellings to canonical buckets and passes
// unmapped labels through unchanged.
func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"critical", "Critical"},
		{"CRITICAL", "Critical"},
		{"High", "High"},
		{" medium ", "Medium"},
		{"", report.Unknown},
		{"Suspicious", "Suspicious"},
	}

	for _, tt := range tests {
		if got := NormalizeSeverity(tt.in); got != tt.want {
			t.Errorf("NormalizeSeverity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestNormalizeStatus folds ticket status spellings to the canonical set.
func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Closed", "closed"},
		{"In Progress", "in_progress"},
		{"INPROGRESS", "in_progress"},
		{"On Hold", "on-hold"},
		{"onhold", "on-hold"},
		{"", report.Unknown},
		{"Escalated", "Escalated"},
	}

	for _, tt := range tests {
		if got := NormalizeStatus(tt.in); got != tt.want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestParseTimestamp verifies the mixed export layouts parse and garbage is
// reported as absence rather than an error.
func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{"2025/06/15 2:30:45 PM", true, time.Date(2025, 6, 15, 14, 30, 45, 0, time.UTC)},
		{"15/06/2025 2:30:45 PM", true, time.Date(2025, 6, 15, 14, 30, 45, 0, time.UTC)},
		{"2025-06-15 14:30:45", true, time.Date(2025, 6, 15, 14, 30, 45, 0, time.UTC)},
		{"", false, time.Time{}},
		{"not a time", false, time.Time{}},
	}

	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseTimestamp(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// =============================================================================
// Normalize Tests
// =============================================================================

// TestNormalize_SchemaErrorListsAllMissing verifies that every missing
// required field is named in one error, not just the first.
func TestNormalize_SchemaErrorListsAllMissing(t *testing.T) {
	table := &report.Table{Columns: []string{"Country"}}

	_, err := Normalize(table, Options{})
	if err == nil {
		t.Fatal("expected schema error for table lacking required columns")
	}

	var schemaErr *report.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *report.SchemaError, got %T", err)
	}

	want := []string{"id", "hostname", "severity"}
	if !reflect.DeepEqual(schemaErr.Missing, want) {
		t.Errorf("Missing = %v, want %v", schemaErr.Missing, want)
	}
}

// TestNormalize_RequiredOverride verifies that callers can swap the required
// set, as ticket exports carry status but no hostname.
func TestNormalize_RequiredOverride(t *testing.T) {
	table := &report.Table{
		Columns: []string{"Request ID", "Status", "Severity"},
		Rows:    [][]string{{"T-1", "Closed", "High"}},
	}

	records, err := Normalize(table, Options{
		Required: []Field{FieldID, FieldStatus, FieldSeverity},
	})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Status != "closed" {
		t.Errorf("Status = %q, want closed", records[0].Status)
	}
}

// TestNormalize_DropsRowsMissingKeys verifies that rows with an empty id or
// hostname are dropped silently, not errored.
func TestNormalize_DropsRowsMissingKeys(t *testing.T) {
	table := &report.Table{
		Columns: []string{"ID", "Hostname", "Severity"},
		Rows: [][]string{
			{"1", "host-a", "High"},
			{"", "host-b", "High"},
			{"3", "", "Low"},
			{"4", "host-d", "Critical"},
		},
	}

	records, err := Normalize(table, Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 kept records, got %d", len(records))
	}
	if records[0].ID != "1" || records[1].ID != "4" {
		t.Errorf("kept wrong rows: %v, %v", records[0].ID, records[1].ID)
	}
}

// TestNormalize_UnknownFill verifies that empty cells in a mapped
// categorical column are filled with the Unknown sentinel, while an absent
// column stays "" and identity-ish fields stay empty. The ""-vs-Unknown
// split is what lets aggregators tell a missing column from empty data.
func TestNormalize_UnknownFill(t *testing.T) {
	table := &report.Table{
		Columns: []string{"ID", "Hostname", "Severity", "Country", "UserName"},
		Rows:    [][]string{{"1", "host-a", "High", "", ""}},
	}

	records, err := Normalize(table, Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	r := records[0]
	if r.Country != report.Unknown {
		t.Errorf("Country (mapped, empty cell) = %q, want Unknown sentinel", r.Country)
	}
	if r.Tactic != "" {
		t.Errorf("Tactic (unmapped column) = %q, want empty", r.Tactic)
	}
	if r.UserName != "" {
		t.Errorf("UserName = %q, want empty", r.UserName)
	}
}

// TestNormalize_DefaultMonth verifies the caller-supplied period label tags
// records whose input has no month column.
func TestNormalize_DefaultMonth(t *testing.T) {
	table := &report.Table{
		Columns: []string{"ID", "Hostname", "Severity"},
		Rows:    [][]string{{"1", "host-a", "High"}},
	}

	records, err := Normalize(table, Options{DefaultMonth: "June 2025"})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if records[0].Month != "June 2025" {
		t.Errorf("Month = %q, want June 2025", records[0].Month)
	}
}

// TestNormalize_MonthColumnWins verifies an explicit month column overrides
// the default period label.
func TestNormalize_MonthColumnWins(t *testing.T) {
	table := &report.Table{
		Columns: []string{"ID", "Hostname", "Severity", "Month"},
		Rows:    [][]string{{"1", "host-a", "High", "July 2025"}},
	}

	records, err := Normalize(table, Options{DefaultMonth: "June 2025"})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if records[0].Month != "July 2025" {
		t.Errorf("Month = %q, want July 2025", records[0].Month)
	}
}

// TestNormalize_RaggedRows verifies short rows read as empty cells instead
// of panicking.
func TestNormalize_RaggedRows(t *testing.T) {
	table := &report.Table{
		Columns: []string{"ID", "Hostname", "Severity", "Country"},
		Rows:    [][]string{{"1", "host-a"}},
	}

	records, err := Normalize(table, Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if records[0].Severity != report.Unknown {
		t.Errorf("short row severity = %q, want Unknown", records[0].Severity)
	}
}
