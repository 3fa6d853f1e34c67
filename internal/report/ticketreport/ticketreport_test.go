package ticketreport

import (
	"testing"

	"github.com/lvonguyen/reportforge/internal/report"
)

// =============================================================================
// Crosstab Tests
// =============================================================================

// TestCrosstab_TwoByTwo feeds four tickets covering two statuses and two
// severities and checks the 3x3 matrix including both margin totals.
func TestCrosstab_TwoByTwo(t *testing.T) {
	records := []report.Record{
		{Status: "open", Severity: "Critical", Month: "June 2025"},
		{Status: "open", Severity: "High", Month: "June 2025"},
		{Status: "closed", Severity: "Critical", Month: "June 2025"},
		{Status: "closed", Severity: "Critical", Month: "June 2025"},
	}

	rt := Crosstab(records)

	// Status + 2 severities + Grand Total.
	wantCols := []string{"Status", "Critical", "High", GrandTotal}
	if len(rt.Columns) != len(wantCols) {
		t.Fatalf("columns = %v, want %v", rt.Columns, wantCols)
	}
	for i, c := range wantCols {
		if rt.Columns[i] != c {
			t.Errorf("column %d = %q, want %q", i, rt.Columns[i], c)
		}
	}

	// 2 status rows + margin row.
	if len(rt.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rt.Rows))
	}

	// Lifecycle order puts open before closed.
	if rt.Rows[0][0] != "open" || rt.Rows[1][0] != "closed" {
		t.Errorf("row order = %v, %v, want open then closed", rt.Rows[0][0], rt.Rows[1][0])
	}

	open, closed, margin := rt.Rows[0], rt.Rows[1], rt.Rows[2]
	if open[1] != 1 || open[2] != 1 || open[3] != 2 {
		t.Errorf("open row = %v, want [open 1 1 2]", open)
	}
	if closed[1] != 2 || closed[2] != 0 || closed[3] != 2 {
		t.Errorf("closed row = %v, want [closed 2 0 2]", closed)
	}
	if margin[0] != GrandTotal || margin[1] != 3 || margin[2] != 1 || margin[3] != 4 {
		t.Errorf("margin row = %v, want [Grand Total 3 1 4]", margin)
	}
}

// TestCrosstabPerMonth verifies one matrix per month in chronological order,
// each restricted to that month's tickets.
func TestCrosstabPerMonth(t *testing.T) {
	records := []report.Record{
		{Status: "open", Severity: "High", Month: "July 2025"},
		{Status: "closed", Severity: "High", Month: "June 2025"},
	}

	tables := CrosstabPerMonth(records)

	if len(tables) != 2 {
		t.Fatalf("expected 2 per-month tables, got %d", len(tables))
	}
	if tables[0].Name != TableCrosstab+":June 2025" {
		t.Errorf("first table = %q, want June", tables[0].Name)
	}
	if tables[1].Name != TableCrosstab+":July 2025" {
		t.Errorf("second table = %q, want July", tables[1].Name)
	}

	// June table holds only the closed ticket plus the margin row.
	june := tables[0]
	if len(june.Rows) != 2 {
		t.Errorf("June rows = %d, want 2", len(june.Rows))
	}
	if june.Rows[0][0] != "closed" {
		t.Errorf("June status = %v, want closed", june.Rows[0][0])
	}
}

// =============================================================================
// Status Pivot and Trend Tests
// =============================================================================

// TestStatusPivot_ZeroFilledWithMargins verifies months as columns in
// chronological order, zero-filled cells, and both margin totals.
func TestStatusPivot_ZeroFilledWithMargins(t *testing.T) {
	records := []report.Record{
		{Status: "open", Month: "June 2025"},
		{Status: "open", Month: "June 2025"},
		{Status: "closed", Month: "July 2025"},
	}

	rt := StatusPivot(records)

	wantCols := []string{"Status", "June 2025", "July 2025", GrandTotal}
	for i, c := range wantCols {
		if rt.Columns[i] != c {
			t.Fatalf("columns = %v, want %v", rt.Columns, wantCols)
		}
	}

	open, closed, margin := rt.Rows[0], rt.Rows[1], rt.Rows[2]
	if open[1] != 2 || open[2] != 0 || open[3] != 2 {
		t.Errorf("open row = %v", open)
	}
	if closed[1] != 0 || closed[2] != 1 || closed[3] != 1 {
		t.Errorf("closed row = %v", closed)
	}
	if margin[1] != 2 || margin[2] != 1 || margin[3] != 3 {
		t.Errorf("margin row = %v", margin)
	}
}

// TestStatusTrend_SkipsZeroCombinations verifies the long-format trend only
// emits observed (month, status) pairs.
func TestStatusTrend_SkipsZeroCombinations(t *testing.T) {
	records := []report.Record{
		{Status: "open", Month: "June 2025"},
		{Status: "closed", Month: "July 2025"},
	}

	rt := StatusTrend(records)

	if len(rt.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rt.Rows))
	}
	if rt.Rows[0][0] != "June 2025" || rt.Rows[0][1] != "open" {
		t.Errorf("first row = %v", rt.Rows[0])
	}
}

// =============================================================================
// Distribution and Closure Tests
// =============================================================================

// TestDistribution_PercentagesSumTo100 verifies counts and two-decimal
// shares over all months.
func TestDistribution_PercentagesSumTo100(t *testing.T) {
	records := []report.Record{
		{Status: "open", Month: "June 2025"},
		{Status: "open", Month: "June 2025"},
		{Status: "in_progress", Month: "June 2025"},
		{Status: "closed", Month: "July 2025"},
		{Status: "closed", Month: "July 2025"},
		{Status: "closed", Month: "July 2025"},
	}

	rt := Distribution(records)

	if len(rt.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rt.Rows))
	}

	sum := 0.0
	for _, row := range rt.Rows {
		sum += row[2].(float64)
	}
	if sum < 99.9 || sum > 100.1 {
		t.Errorf("percentages sum to %.2f, want 100", sum)
	}

	if rt.Rows[0][0] != "open" || rt.Rows[0][1] != 2 {
		t.Errorf("first row = %v, want open count 2", rt.Rows[0])
	}
}

// TestClosure_PerMonthMetrics verifies the closed/open severity counts and
// the closure rate per month.
func TestClosure_PerMonthMetrics(t *testing.T) {
	records := []report.Record{
		{Status: "closed", Severity: "Critical", Month: "June 2025"},
		{Status: "closed", Severity: "High", Month: "June 2025"},
		{Status: "open", Severity: "Critical", Month: "June 2025"},
		{Status: "in_progress", Severity: "High", Month: "June 2025"},
	}

	rt := Closure(records)

	got := make(map[string]any)
	for _, row := range rt.Rows {
		got[row[0].(string)] = row[2]
	}

	if got["Critical Closed"] != 1 {
		t.Errorf("Critical Closed = %v, want 1", got["Critical Closed"])
	}
	if got["High Closed"] != 1 {
		t.Errorf("High Closed = %v, want 1", got["High Closed"])
	}
	if got["Critical Open"] != 1 {
		t.Errorf("Critical Open = %v, want 1", got["Critical Open"])
	}
	if got["High Open"] != 1 {
		t.Errorf("High Open = %v, want 1", got["High Open"])
	}
	if got["Closure Rate"] != 50.0 {
		t.Errorf("Closure Rate = %v, want 50.0", got["Closure Rate"])
	}
}
