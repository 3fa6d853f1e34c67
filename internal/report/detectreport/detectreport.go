// Package detectreport builds the detection and severity analysis tables:
// the four-metric overview, severity trend, geographic and file rollups, and
// the tactic/technique raw tables pivot consumers aggregate themselves.
package detectreport

import (
	"sort"
	"strings"

	"github.com/lvonguyen/reportforge/internal/report"
)

// Result table names emitted by this package.
const (
	TableKeyMetrics  = "critical_high_overview"
	TableSeverity    = "severity_trend"
	TableGeographic  = "country_analysis"
	TableFiles       = "file_analysis"
	TableTactics     = "tactics_by_severity"
	TableTechniques  = "technique_by_severity"
	TableFilteredRaw = "raw_data_filtered"
)

const (
	overviewLabel = "Detection Analysis Overview"
	geoLabel      = "Detection_Ana Geographic Analysis"
	fileLabel     = "Detection_Ana File Analysis"
)

// DefaultTopCountries and DefaultTopFiles are the rank cutoffs used when
// the caller does not override them.
const (
	DefaultTopCountries = 10
	DefaultTopFiles     = 10
)

// severityRank orders the canonical buckets for trend output; anything else
// sorts after Low.
var severityRank = map[string]int{
	"Critical": 1,
	"High":     2,
	"Medium":   3,
	"Low":      4,
}

// KeyMetrics emits exactly four metrics per month: Total Detections, Unique
// Devices, Critical Detections, High Detections. The metric set and column
// names are a compatibility contract with downstream pivot consumers.
func KeyMetrics(records []report.Record) *report.ResultTable {
	rt := &report.ResultTable{
		Name:    TableKeyMetrics,
		Columns: []string{"KEY METRICS", "Month", "Analysis", "DataSource", "Count"},
	}

	for _, month := range report.UniqueMonths(records) {
		devices := make(map[string]struct{})
		total, critical, high := 0, 0, 0

		for _, r := range records {
			if r.Month != month {
				continue
			}
			total++
			devices[r.Hostname] = struct{}{}
			sev := strings.ToLower(r.Severity)
			if strings.Contains(sev, "critical") {
				critical++
			}
			if strings.Contains(sev, "high") {
				high++
			}
		}

		metrics := []struct {
			name  string
			value int
		}{
			{"Total Detections", total},
			{"Unique Devices", len(devices)},
			{"Critical Detections", critical},
			{"High Detections", high},
		}
		for _, m := range metrics {
			rt.AppendRow(m.name, month, overviewLabel, overviewLabel, m.value)
		}
	}
	return rt
}

// SeverityTrend counts detections per (severity, month), ordered
// Critical, High, Medium, Low, then anything else, then month.
func SeverityTrend(records []report.Record) *report.ResultTable {
	type key struct{ severity, month string }
	counts := make(map[key]int)
	sevSet := make(map[string]struct{})
	for _, r := range records {
		counts[key{r.Severity, r.Month}]++
		sevSet[r.Severity] = struct{}{}
	}

	severities := make([]string, 0, len(sevSet))
	for s := range sevSet {
		severities = append(severities, s)
	}
	sort.Slice(severities, func(i, j int) bool {
		ri, rj := severityOrder(severities[i]), severityOrder(severities[j])
		if ri != rj {
			return ri < rj
		}
		return severities[i] < severities[j]
	})

	rt := &report.ResultTable{
		Name:    TableSeverity,
		Columns: []string{"SeverityName", "Month", "Analysis", "DataSource", "Count"},
	}
	for _, s := range severities {
		for _, m := range report.UniqueMonths(records) {
			if c := counts[key{s, m}]; c > 0 {
				rt.AppendRow(s, m, overviewLabel, overviewLabel, c)
			}
		}
	}
	return rt
}

func severityOrder(s string) int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return 5
}

// Geographic ranks countries by detection total, keeps the top n, densifies
// every kept country across every month (zero-fill), and reports each row's
// share of the month total to two decimals. When the input carries no real
// country data it degrades to a one-row placeholder table instead of failing.
func Geographic(records []report.Record, n int) *report.ResultTable {
	if n <= 0 {
		n = DefaultTopCountries
	}
	filtered := withValue(records, func(r report.Record) string { return r.Country })
	if len(filtered) == 0 {
		msg := absenceMessage(records, func(r report.Record) string { return r.Country },
			"Country data not available", "No country data available")
		return report.Placeholder(TableGeographic, msg)
	}

	top := report.TopN(filtered, func(r report.Record) string { return r.Country }, n)

	rt := &report.ResultTable{
		Name:    TableGeographic,
		Columns: []string{"Country", "Detection Count", "Percentage", "Month", "DataSource", "Geographic Analysis"},
	}
	countries := append([]string(nil), top.Dims...)
	sort.Strings(countries)
	for _, c := range countries {
		for _, m := range top.Months {
			rt.AppendRow(c, top.Counts[c][m], top.Percentage(c, m, 2), m, geoLabel, geoLabel)
		}
	}
	return rt
}

// Files ranks file names by detection total with the same densification and
// placeholder policy as Geographic.
func Files(records []report.Record, n int) *report.ResultTable {
	if n <= 0 {
		n = DefaultTopFiles
	}
	filtered := withValue(records, func(r report.Record) string { return r.FileName })
	if len(filtered) == 0 {
		msg := absenceMessage(records, func(r report.Record) string { return r.FileName },
			"FileName data not available", "No file data available")
		return report.Placeholder(TableFiles, msg)
	}

	top := report.TopN(filtered, func(r report.Record) string { return r.FileName }, n)

	rt := &report.ResultTable{
		Name:    TableFiles,
		Columns: []string{"File Name", "Detection Count", "Percentage", "Month", "DataSource", "File Analysis"},
	}
	files := append([]string(nil), top.Dims...)
	sort.Strings(files)
	for _, f := range files {
		for _, m := range top.Months {
			rt.AppendRow(f, top.Counts[f][m], top.Percentage(f, m, 2), m, fileLabel, fileLabel)
		}
	}
	return rt
}

// TacticsBySeverity emits one row per record that carries a real tactic,
// with Count=1 so spreadsheet pivots can aggregate it. Placeholder when no
// record qualifies.
func TacticsBySeverity(records []report.Record) *report.ResultTable {
	return rawBySeverity(TableTactics, records,
		func(r report.Record) string { return r.Tactic }, "No tactic data available")
}

// TechniqueBySeverity is the technique counterpart of TacticsBySeverity.
func TechniqueBySeverity(records []report.Record) *report.ResultTable {
	return rawBySeverity(TableTechniques, records,
		func(r report.Record) string { return r.Technique }, "No technique data available")
}

func rawBySeverity(name string, records []report.Record, field func(report.Record) string, absentMsg string) *report.ResultTable {
	filtered := withValue(records, field)
	if len(filtered) == 0 {
		return report.Placeholder(name, absentMsg)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.Hostname != b.Hostname {
			return a.Hostname < b.Hostname
		}
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		return report.MonthBefore(a.Month, b.Month)
	})

	rt := &report.ResultTable{
		Name:    name,
		Columns: []string{"Hostname", "SeverityName", "Tactic", "Technique", "Objective", "Month", "Count"},
	}
	for _, r := range filtered {
		rt.AppendRow(r.Hostname, r.Severity, r.Tactic, r.Technique, r.Objective, r.Month, 1)
	}
	return rt
}

// FilteredRaw projects the cleaned records to the pivot-builder column set
// with a constant Count column. Site and OU ride along for consumers that
// slice the pivot by organizational placement.
func FilteredRaw(records []report.Record) *report.ResultTable {
	rt := &report.ResultTable{
		Name:    TableFilteredRaw,
		Columns: []string{"Hostname", "SeverityName", "Tactic", "Technique", "Objective", "Site", "OU", "Month", "Count"},
	}
	for _, r := range records {
		rt.AppendRow(r.Hostname, r.Severity, r.Tactic, r.Technique, r.Objective, r.Site, r.OU, r.Month, 1)
	}
	return rt
}

// absenceMessage picks the degradation message for a field with no usable
// values: the normalizer leaves the field "" when the source column was
// absent and fills Unknown when the column was present but empty, so any
// Unknown means the column existed.
func absenceMessage(records []report.Record, field func(report.Record) string, absentMsg, emptyMsg string) string {
	for _, r := range records {
		if field(r) == report.Unknown {
			return emptyMsg
		}
	}
	return absentMsg
}

// withValue copies the records whose field is neither empty nor Unknown.
func withValue(records []report.Record, field func(report.Record) string) []report.Record {
	var out []report.Record
	for _, r := range records {
		if v := field(r); v != "" && v != report.Unknown {
			out = append(out, r)
		}
	}
	return out
}
