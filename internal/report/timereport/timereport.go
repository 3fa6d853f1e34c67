// Package timereport builds the time-based analysis tables from records that
// carry a parseable detection timestamp: daily trends with per-month running
// totals, the 24-hour breakdown, and the day-of-week breakdown. Hour and day
// tables are densified so every slot appears for every month even at zero.
package timereport

import (
	"fmt"
	"sort"
	"time"

	"github.com/lvonguyen/reportforge/internal/report"
)

// Result table names emitted by this package.
const (
	TableDaily     = "daily_trends"
	TableHourly    = "hourly_analysis"
	TableDayOfWeek = "day_of_week"
)

const (
	businessHours    = "Business Hours"
	nonBusinessHours = "Non-Business Hours"
)

// dayOrder runs Monday through Sunday, the Sort column being 1-based.
var dayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// timed filters to records with a parsed timestamp. The month label is
// re-derived from the timestamp itself so time tables always group by the
// calendar month the detection happened in.
func timed(records []report.Record) []report.Record {
	var out []report.Record
	for _, r := range records {
		if r.DetectedAt.IsZero() {
			continue
		}
		r.Month = r.DetectedAt.Format("January 2006")
		out = append(out, r)
	}
	return out
}

// Daily counts detections per calendar date with a cumulative running total
// per month. Rows are ordered month, then count descending, then date; the
// cumulative column always reflects chronological order within the month.
func Daily(records []report.Record) *report.ResultTable {
	rs := timed(records)
	if len(rs) == 0 {
		return report.Placeholder(TableDaily, "No timestamp data available")
	}

	type dateKey struct {
		date  time.Time
		month string
	}
	counts := make(map[dateKey]int)
	for _, r := range rs {
		d := time.Date(r.DetectedAt.Year(), r.DetectedAt.Month(), r.DetectedAt.Day(), 0, 0, 0, 0, time.UTC)
		counts[dateKey{d, r.Month}]++
	}

	keys := make([]dateKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}

	// Chronological pass for the per-month cumulative sums.
	sort.Slice(keys, func(i, j int) bool { return keys[i].date.Before(keys[j].date) })
	cumulative := make(map[dateKey]int)
	running := make(map[string]int)
	for _, k := range keys {
		running[k.month] += counts[k]
		cumulative[k] = running[k.month]
	}

	// Presentation order: month, count descending, date.
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.month != b.month {
			return report.MonthBefore(a.month, b.month)
		}
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return a.date.Before(b.date)
	})

	rt := &report.ResultTable{
		Name:    TableDaily,
		Columns: []string{"Date", "Detection Count", "Cumulative", "Month"},
	}
	for _, k := range keys {
		rt.AppendRow(k.date.Format("Mon Jan 02 2006"), counts[k], cumulative[k], k.month)
	}
	return rt
}

// Hourly breaks detections into all 24 hours per month, zero-filled, with
// the hour's share of the month total (one decimal, rendered with a trailing
// percent sign) and a Business Hours tag for 08:00 through 17:59.
func Hourly(records []report.Record) *report.ResultTable {
	rs := timed(records)
	if len(rs) == 0 {
		return report.Placeholder(TableHourly, "No timestamp data available")
	}

	type key struct {
		hour  int
		month string
	}
	counts := make(map[key]int)
	monthTotals := make(map[string]int)
	for _, r := range rs {
		counts[key{r.DetectedAt.Hour(), r.Month}]++
		monthTotals[r.Month]++
	}

	rt := &report.ResultTable{
		Name:    TableHourly,
		Columns: []string{"Hour", "Detection Count", "Percentage", "Period", "Sort", "Month"},
	}
	for _, m := range report.UniqueMonths(rs) {
		for h := 0; h < 24; h++ {
			c := counts[key{h, m}]
			pct := 0.0
			if monthTotals[m] > 0 {
				pct = report.Round(float64(c)/float64(monthTotals[m])*100, 1)
			}
			period := nonBusinessHours
			if h >= 8 && h < 18 {
				period = businessHours
			}
			rt.AppendRow(fmt.Sprintf("%d:00", h), c, fmt.Sprintf("%.1f%%", pct), period, h+1, m)
		}
	}
	return rt
}

// DayOfWeek breaks detections into all 7 weekdays per month, zero-filled,
// with percentage of month total and a Weekday/Weekend tag. Sort runs
// Monday=1 through Sunday=7.
func DayOfWeek(records []report.Record) *report.ResultTable {
	rs := timed(records)
	if len(rs) == 0 {
		return report.Placeholder(TableDayOfWeek, "No timestamp data available")
	}

	type key struct {
		day   time.Weekday
		month string
	}
	counts := make(map[key]int)
	monthTotals := make(map[string]int)
	for _, r := range rs {
		counts[key{r.DetectedAt.Weekday(), r.Month}]++
		monthTotals[r.Month]++
	}

	rt := &report.ResultTable{
		Name:    TableDayOfWeek,
		Columns: []string{"Day", "Detection Count", "Percentage", "Type", "Sort", "Month"},
	}
	for _, m := range report.UniqueMonths(rs) {
		for i, day := range dayOrder {
			c := counts[key{day, m}]
			pct := 0.0
			if monthTotals[m] > 0 {
				pct = report.Round(float64(c)/float64(monthTotals[m])*100, 1)
			}
			kind := "Weekday"
			if day == time.Saturday || day == time.Sunday {
				kind = "Weekend"
			}
			rt.AppendRow(day.String(), c, fmt.Sprintf("%.1f%%", pct), kind, i+1, m)
		}
	}
	return rt
}
