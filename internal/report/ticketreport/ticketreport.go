// Package ticketreport builds the ticket status analyses: status by severity
// crosstabs with margin totals, the status trend and pivot across months,
// the overall status distribution, and closure metrics.
package ticketreport

import (
	"sort"

	"github.com/lvonguyen/reportforge/internal/report"
)

// Result table names emitted by this package. Per-month crosstabs are named
// TableCrosstab + ":" + month label.
const (
	TableCrosstab     = "detection_status_pivot"
	TableStatusTrend  = "ticket_status_trend"
	TableStatusPivot  = "ticket_status_pivot"
	TableDistribution = "status_distribution"
	TableClosure      = "ticket_closure_metrics"
)

// GrandTotal labels the margin row and column of crosstab output.
const GrandTotal = "Grand Total"

// statusRank fixes the lifecycle row order; unknown statuses sort after the
// canonical set, ascending.
var statusRank = map[string]int{
	"open":        1,
	"in_progress": 2,
	"pending":     3,
	"on-hold":     4,
	"closed":      5,
}

var severityRank = map[string]int{
	"Critical": 1,
	"High":     2,
	"Medium":   3,
	"Low":      4,
}

func rankOf(v string, ranks map[string]int) int {
	if r, ok := ranks[v]; ok {
		return r
	}
	return len(ranks) + 1
}

func sortedKeys(set map[string]struct{}, ranks map[string]int) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rankOf(keys[i], ranks), rankOf(keys[j], ranks)
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Crosstab builds the status x severity matrix over all records, with a
// Grand Total margin row and column holding the respective axis sums.
func Crosstab(records []report.Record) *report.ResultTable {
	return crosstab(TableCrosstab, records)
}

// CrosstabPerMonth builds one status x severity crosstab per month, in
// chronological order, named TableCrosstab + ":" + month.
func CrosstabPerMonth(records []report.Record) []*report.ResultTable {
	var out []*report.ResultTable
	for _, month := range report.UniqueMonths(records) {
		var subset []report.Record
		for _, r := range records {
			if r.Month == month {
				subset = append(subset, r)
			}
		}
		out = append(out, crosstab(TableCrosstab+":"+month, subset))
	}
	return out
}

func crosstab(name string, records []report.Record) *report.ResultTable {
	type key struct{ status, severity string }
	counts := make(map[key]int)
	statusSet := make(map[string]struct{})
	sevSet := make(map[string]struct{})
	for _, r := range records {
		counts[key{r.Status, r.Severity}]++
		statusSet[r.Status] = struct{}{}
		sevSet[r.Severity] = struct{}{}
	}

	statuses := sortedKeys(statusSet, statusRank)
	severities := sortedKeys(sevSet, severityRank)

	rt := &report.ResultTable{Name: name}
	rt.Columns = append(rt.Columns, "Status")
	rt.Columns = append(rt.Columns, severities...)
	rt.Columns = append(rt.Columns, GrandTotal)

	colTotals := make([]int, len(severities))
	grand := 0
	for _, s := range statuses {
		row := make([]any, 0, len(severities)+2)
		row = append(row, s)
		rowTotal := 0
		for i, sev := range severities {
			c := counts[key{s, sev}]
			row = append(row, c)
			rowTotal += c
			colTotals[i] += c
		}
		grand += rowTotal
		row = append(row, rowTotal)
		rt.Rows = append(rt.Rows, row)
	}

	margin := make([]any, 0, len(severities)+2)
	margin = append(margin, GrandTotal)
	for _, t := range colTotals {
		margin = append(margin, t)
	}
	margin = append(margin, grand)
	rt.Rows = append(rt.Rows, margin)
	return rt
}

// StatusTrend counts tickets per (month, status) in long format for bar
// chart and pivot consumption.
func StatusTrend(records []report.Record) *report.ResultTable {
	type key struct{ month, status string }
	counts := make(map[key]int)
	statusSet := make(map[string]struct{})
	for _, r := range records {
		counts[key{r.Month, r.Status}]++
		statusSet[r.Status] = struct{}{}
	}

	rt := &report.ResultTable{
		Name:    TableStatusTrend,
		Columns: []string{"Month", "Status", "Count"},
	}
	for _, m := range report.UniqueMonths(records) {
		for _, s := range sortedKeys(statusSet, statusRank) {
			if c := counts[key{m, s}]; c > 0 {
				rt.AppendRow(m, s, c)
			}
		}
	}
	return rt
}

// StatusPivot builds the status x month crosstab with Grand Total margins:
// statuses as rows, chronological months as columns, zero-filled cells.
func StatusPivot(records []report.Record) *report.ResultTable {
	type key struct{ status, month string }
	counts := make(map[key]int)
	statusSet := make(map[string]struct{})
	for _, r := range records {
		counts[key{r.Status, r.Month}]++
		statusSet[r.Status] = struct{}{}
	}

	months := report.UniqueMonths(records)
	statuses := sortedKeys(statusSet, statusRank)

	rt := &report.ResultTable{Name: TableStatusPivot}
	rt.Columns = append(rt.Columns, "Status")
	rt.Columns = append(rt.Columns, months...)
	rt.Columns = append(rt.Columns, GrandTotal)

	colTotals := make([]int, len(months))
	grand := 0
	for _, s := range statuses {
		row := make([]any, 0, len(months)+2)
		row = append(row, s)
		rowTotal := 0
		for i, m := range months {
			c := counts[key{s, m}]
			row = append(row, c)
			rowTotal += c
			colTotals[i] += c
		}
		grand += rowTotal
		row = append(row, rowTotal)
		rt.Rows = append(rt.Rows, row)
	}

	margin := make([]any, 0, len(months)+2)
	margin = append(margin, GrandTotal)
	for _, t := range colTotals {
		margin = append(margin, t)
	}
	margin = append(margin, grand)
	rt.Rows = append(rt.Rows, margin)
	return rt
}

// Distribution reports each status's ticket count and share of all tickets
// across every month, rounded to two decimals.
func Distribution(records []report.Record) *report.ResultTable {
	counts := make(map[string]int)
	statusSet := make(map[string]struct{})
	for _, r := range records {
		counts[r.Status]++
		statusSet[r.Status] = struct{}{}
	}

	rt := &report.ResultTable{
		Name:    TableDistribution,
		Columns: []string{"Status", "Count", "Percentage"},
	}
	total := len(records)
	for _, s := range sortedKeys(statusSet, statusRank) {
		pct := 0.0
		if total > 0 {
			pct = report.Round(float64(counts[s])/float64(total)*100, 2)
		}
		rt.AppendRow(s, counts[s], pct)
	}
	return rt
}

// Closure emits per-month closure metrics in long format: critical and high
// counts closed, critical and high still open (open or in_progress), and the
// month's closure rate percentage.
func Closure(records []report.Record) *report.ResultTable {
	rt := &report.ResultTable{
		Name:    TableClosure,
		Columns: []string{"Metric", "Month", "Count"},
	}

	for _, month := range report.UniqueMonths(records) {
		total := 0
		closed := 0
		var criticalClosed, highClosed, criticalOpen, highOpen int
		for _, r := range records {
			if r.Month != month {
				continue
			}
			total++
			isOpen := r.Status == "open" || r.Status == "in_progress"
			isClosed := r.Status == "closed"
			if isClosed {
				closed++
			}
			switch r.Severity {
			case "Critical":
				if isClosed {
					criticalClosed++
				}
				if isOpen {
					criticalOpen++
				}
			case "High":
				if isClosed {
					highClosed++
				}
				if isOpen {
					highOpen++
				}
			}
		}

		rate := 0.0
		if total > 0 {
			rate = report.Round(float64(closed)/float64(total)*100, 2)
		}
		rt.AppendRow("Critical Closed", month, criticalClosed)
		rt.AppendRow("High Closed", month, highClosed)
		rt.AppendRow("Critical Open", month, criticalOpen)
		rt.AppendRow("High Open", month, highOpen)
		rt.AppendRow("Closure Rate", month, rate)
	}
	return rt
}
