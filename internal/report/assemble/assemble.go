// Package assemble runs the full aggregation pipeline: normalize the raw
// table(s), invoke every aggregator in a fixed order, and collect the named
// result tables into one bundle. A schema failure aborts the whole assembly;
// there are no partial bundles.
package assemble

import (
	"fmt"

	"github.com/lvonguyen/reportforge/internal/report"
	"github.com/lvonguyen/reportforge/internal/report/detectreport"
	"github.com/lvonguyen/reportforge/internal/report/hostreport"
	"github.com/lvonguyen/reportforge/internal/report/schema"
	"github.com/lvonguyen/reportforge/internal/report/ticketreport"
	"github.com/lvonguyen/reportforge/internal/report/timereport"
)

// MaxMonths caps trend analysis at three months of data.
const MaxMonths = 3

// Options carries caller-supplied configuration for one assembly run.
// Nothing here is shared between runs.
type Options struct {
	// MonthCount is the number of months the caller expects (1-3). Zero
	// means accept whatever the data carries, up to MaxMonths.
	MonthCount int
	// Top-N overrides; zero means each aggregator's default.
	TopHosts     int
	TopUsers     int
	TopCountries int
	TopFiles     int
}

// MonthTable pairs one month's raw export with its period label. The label
// tags records whose rows lack a month column.
type MonthTable struct {
	Period string        `json:"period"`
	Table  *report.Table `json:"table"`
}

// Assemble normalizes one raw table and builds the full bundle.
func Assemble(t *report.Table, opts Options) (*report.Bundle, error) {
	records, err := schema.Normalize(t, schema.Options{})
	if err != nil {
		return nil, err
	}
	return Records(records, opts)
}

// AssembleTables normalizes one table per month, tagging each with its
// period label, and builds the bundle over the combined records.
func AssembleTables(tables []MonthTable, opts Options) (*report.Bundle, error) {
	var records []report.Record
	for _, mt := range tables {
		rs, err := schema.Normalize(mt.Table, schema.Options{DefaultMonth: mt.Period})
		if err != nil {
			return nil, err
		}
		records = append(records, rs...)
	}
	return Records(records, opts)
}

// Records builds the bundle from already-normalized records. Aggregators run
// in a fixed, documented order; each is pure and never mutates the input.
func Records(records []report.Record, opts Options) (*report.Bundle, error) {
	months := report.UniqueMonths(records)
	limit := opts.MonthCount
	if limit <= 0 {
		limit = MaxMonths
	}
	if limit > MaxMonths {
		limit = MaxMonths
	}
	if len(months) > limit {
		return nil, fmt.Errorf("input spans %d months, limit is %d", len(months), limit)
	}

	b := &report.Bundle{Records: records, Months: months}

	// Host analysis.
	b.Add(hostreport.KeyMetrics(records))
	b.Add(hostreport.TopHosts(records, opts.TopHosts))
	b.Add(hostreport.Users(records, opts.TopUsers))
	b.Add(hostreport.Sensors(records))

	// Detection and severity analysis.
	b.Add(detectreport.KeyMetrics(records))
	b.Add(detectreport.SeverityTrend(records))
	b.Add(detectreport.Geographic(records, opts.TopCountries))
	b.Add(detectreport.Files(records, opts.TopFiles))
	b.Add(detectreport.TacticsBySeverity(records))
	b.Add(detectreport.TechniqueBySeverity(records))
	b.Add(detectreport.FilteredRaw(records))

	// Ticket status analysis.
	b.Add(ticketreport.Crosstab(records))
	for _, ct := range ticketreport.CrosstabPerMonth(records) {
		b.Add(ct)
	}
	b.Add(ticketreport.StatusTrend(records))
	b.Add(ticketreport.StatusPivot(records))
	b.Add(ticketreport.Distribution(records))
	b.Add(ticketreport.Closure(records))

	// Time-based analysis.
	b.Add(timereport.Daily(records))
	b.Add(timereport.Hourly(records))
	b.Add(timereport.DayOfWeek(records))

	return b, nil
}

// TableNames lists every fixed result table name the assembler can emit, in
// emission order. Per-month crosstabs are excluded because their names carry
// the month label.
func TableNames() []string {
	return []string{
		hostreport.TableKeyMetrics,
		hostreport.TableTopHosts,
		hostreport.TableUsers,
		hostreport.TableSensors,
		detectreport.TableKeyMetrics,
		detectreport.TableSeverity,
		detectreport.TableGeographic,
		detectreport.TableFiles,
		detectreport.TableTactics,
		detectreport.TableTechniques,
		detectreport.TableFilteredRaw,
		ticketreport.TableCrosstab,
		ticketreport.TableStatusTrend,
		ticketreport.TableStatusPivot,
		ticketreport.TableDistribution,
		ticketreport.TableClosure,
		timereport.TableDaily,
		timereport.TableHourly,
		timereport.TableDayOfWeek,
	}
}
