// Package hostreport builds the host-centric analysis tables: overview key
// metrics, top hosts, user rollups, and sensor version coverage. All output
// is long format, one row per (category, month), ready for pivot consumption.
package hostreport

import (
	"sort"
	"strconv"
	"strings"

	"github.com/lvonguyen/reportforge/internal/report"
)

// Result table names emitted by this package.
const (
	TableKeyMetrics = "overview_key_metrics"
	TableTopHosts   = "overview_top_hosts"
	TableUsers      = "user_analysis"
	TableSensors    = "sensor_analysis"
)

const (
	overviewLabel = "Host Analysis Overview"
	userLabel     = "Host Analysis: User Analysis"
	sensorLabel   = "Host Analysis: Sensor Analysis"
)

// DefaultTopHosts and DefaultTopUsers are the rank cutoffs used when the
// caller does not override them.
const (
	DefaultTopHosts = 10
	DefaultTopUsers = 5
)

// KeyMetrics emits the fixed host overview scalars, one row per metric per
// month: Total Hosts, Total Detections, Unique Users, Windows Hosts, and
// Avg_Detection (detections per host, one decimal).
func KeyMetrics(records []report.Record) *report.ResultTable {
	rt := &report.ResultTable{
		Name:    TableKeyMetrics,
		Columns: []string{"KEY METRICS", "Month", "Analysis", "DataSource", "Count"},
	}

	for _, month := range report.UniqueMonths(records) {
		hosts := make(map[string]struct{})
		users := make(map[string]struct{})
		windowsHosts := make(map[string]struct{})
		detections := 0

		for _, r := range records {
			if r.Month != month {
				continue
			}
			detections++
			hosts[r.Hostname] = struct{}{}
			if r.UserName != "" {
				users[r.UserName] = struct{}{}
			}
			if strings.Contains(strings.ToLower(r.OSVersion), "windows") {
				windowsHosts[r.Hostname] = struct{}{}
			}
		}

		avg := 0.0
		if len(hosts) > 0 {
			avg = report.Round(float64(detections)/float64(len(hosts)), 1)
		}

		metrics := []struct {
			name  string
			value any
		}{
			{"Total Hosts", len(hosts)},
			{"Total Detections", detections},
			{"Unique Users", len(users)},
			{"Windows Hosts", len(windowsHosts)},
			{"Avg_Detection", avg},
		}
		for _, m := range metrics {
			rt.AppendRow(m.name, month, overviewLabel, overviewLabel, m.value)
		}
	}
	return rt
}

// TopHosts ranks hosts by detection total across all months, keeps the top
// n, and emits one densified row per kept host per month with the host's
// share of the month total (one decimal). Rows are ordered by host total
// descending, then host, then month.
func TopHosts(records []report.Record, n int) *report.ResultTable {
	if n <= 0 {
		n = DefaultTopHosts
	}
	top := report.TopN(records, func(r report.Record) string { return r.Hostname }, n)

	rt := &report.ResultTable{
		Name:    TableTopHosts,
		Columns: []string{"TOP HOSTS WITH MOST DETECTIONS", "Month", "Analysis", "DataSource", "Count", "Percentage"},
	}
	for _, host := range top.Dims {
		for _, month := range top.Months {
			rt.AppendRow(host, month, overviewLabel, overviewLabel,
				top.Counts[host][month], top.Percentage(host, month, 1))
		}
	}
	return rt
}

// Users ranks non-empty usernames by detection total, keeps the top n, and
// emits densified rows ordered by username then month.
func Users(records []report.Record, n int) *report.ResultTable {
	if n <= 0 {
		n = DefaultTopUsers
	}
	top := report.TopN(records, func(r report.Record) string { return r.UserName }, n)

	users := append([]string(nil), top.Dims...)
	sort.Strings(users)

	rt := &report.ResultTable{
		Name:    TableUsers,
		Columns: []string{"Username", "Month", "AnalysisType", "DataSource", "Count of Detection", "Percentage"},
	}
	for _, user := range users {
		for _, month := range top.Months {
			rt.AppendRow(user, month, userLabel, userLabel,
				top.Counts[user][month], top.Percentage(user, month, 1))
		}
	}
	return rt
}

// Sensors counts detections per (sensor version, month) and tags each row
// Latest or Outdated. The latest version is determined independently per
// month: the highest version key among real versions seen that month, so a
// month never has more than one Latest version. Empty versions are reported
// under the Unknown sentinel and never win Latest.
func Sensors(records []report.Record) *report.ResultTable {
	type key struct{ version, month string }
	counts := make(map[key]int)
	monthTotals := make(map[string]int)
	versionSet := make(map[string]struct{})

	for _, r := range records {
		v := r.SensorVersion
		if v == "" {
			v = report.Unknown
		}
		counts[key{v, r.Month}]++
		monthTotals[r.Month]++
		versionSet[v] = struct{}{}
	}

	months := report.UniqueMonths(records)

	// Latest per month, among real versions present that month.
	latest := make(map[string]string)
	for _, m := range months {
		for v := range versionSet {
			if v == report.Unknown || counts[key{v, m}] == 0 {
				continue
			}
			if cur, ok := latest[m]; !ok || versionAfter(v, cur) {
				latest[m] = v
			}
		}
	}

	versions := make([]string, 0, len(versionSet))
	for v := range versionSet {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool {
		ki, kj := versionKey(versions[i]), versionKey(versions[j])
		if versionLess(ki, kj) {
			return false // highest version first
		}
		if versionLess(kj, ki) {
			return true
		}
		return versions[i] < versions[j]
	})

	rt := &report.ResultTable{
		Name:    TableSensors,
		Columns: []string{"Sensor Version", "Month", "AnalysisType", "DataSource", "Host Count", "Percentage", "Status"},
	}
	for _, v := range versions {
		for _, m := range months {
			c := counts[key{v, m}]
			if c == 0 {
				continue
			}
			pct := 0.0
			if monthTotals[m] > 0 {
				pct = report.Round(float64(c)/float64(monthTotals[m])*100, 1)
			}
			status := "Outdated"
			if latest[m] == v {
				status = "Latest"
			}
			rt.AppendRow(v, m, sensorLabel, sensorLabel, c, pct, status)
		}
	}
	return rt
}

// versionKey parses dot-separated numeric components of a version string.
// Non-numeric components are dropped rather than treated as fatal.
func versionKey(v string) []int {
	parts := strings.Split(v, ".")
	key := make([]int, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			key = append(key, n)
		}
	}
	return key
}

// versionAfter reports whether version a is newer than b. Equal numeric keys
// (versions differing only in non-numeric components) fall back to the
// lexically greater string, so the Latest pick is deterministic.
func versionAfter(a, b string) bool {
	ka, kb := versionKey(a), versionKey(b)
	if versionLess(kb, ka) {
		return true
	}
	if versionLess(ka, kb) {
		return false
	}
	return a > b
}

// versionLess compares version keys component-wise; a shorter key that is a
// prefix of a longer one sorts first.
func versionLess(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
