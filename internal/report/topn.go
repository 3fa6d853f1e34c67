package report

import (
	"math"
	"sort"
)

// TopNResult holds a densified top-N grouping: every kept dimension value
// has a count for every month present in the filtered input, zero-filled
// where no records exist.
type TopNResult struct {
	// Dims lists the kept dimension values in rank order: total count
	// descending, ties broken by dimension value ascending.
	Dims []string
	// Months lists the month labels present in the filtered input,
	// chronologically ordered.
	Months []string
	// Counts maps dim -> month -> count. Zero-filled combinations are
	// present as explicit zero entries.
	Counts map[string]map[string]int
	// MonthTotals sums the kept dimensions' counts per month. Percentages
	// computed against these totals sum to 100 within each month.
	MonthTotals map[string]int
	// Totals sums each kept dimension's counts across all months.
	Totals map[string]int
}

// TopN groups records by (dim(r), month), ranks dimension values by their
// total across all months, keeps the top n, and densifies so every kept
// value appears once per month. Records for which dim returns "" are
// ignored. n <= 0 keeps everything.
func TopN(records []Record, dim func(Record) string, n int) *TopNResult {
	counts := make(map[string]map[string]int)
	totals := make(map[string]int)
	monthSet := make(map[string]struct{})

	for _, r := range records {
		d := dim(r)
		if d == "" {
			continue
		}
		if counts[d] == nil {
			counts[d] = make(map[string]int)
		}
		counts[d][r.Month]++
		totals[d]++
		monthSet[r.Month] = struct{}{}
	}

	dims := make([]string, 0, len(totals))
	for d := range totals {
		dims = append(dims, d)
	}
	sort.Slice(dims, func(i, j int) bool {
		if totals[dims[i]] != totals[dims[j]] {
			return totals[dims[i]] > totals[dims[j]]
		}
		return dims[i] < dims[j]
	})
	if n > 0 && len(dims) > n {
		dims = dims[:n]
	}

	months := make([]string, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	SortMonths(months)

	res := &TopNResult{
		Dims:        dims,
		Months:      months,
		Counts:      make(map[string]map[string]int, len(dims)),
		MonthTotals: make(map[string]int, len(months)),
		Totals:      make(map[string]int, len(dims)),
	}
	for _, d := range dims {
		res.Counts[d] = make(map[string]int, len(months))
		res.Totals[d] = totals[d]
		for _, m := range months {
			c := counts[d][m]
			res.Counts[d][m] = c
			res.MonthTotals[m] += c
		}
	}
	return res
}

// Percentage returns count as a share of the month's kept total, rounded to
// the given number of decimal places. A zero total yields 0.
func (t *TopNResult) Percentage(dim, month string, decimals int) float64 {
	total := t.MonthTotals[month]
	if total == 0 {
		return 0
	}
	return Round(float64(t.Counts[dim][month])/float64(total)*100, decimals)
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
