package report

import (
	"sort"
	"time"
)

// monthKey converts a period label like "June 2025" to a sortable integer
// (year*100 + month). Labels that do not parse sort after every real month,
// falling back to lexical order among themselves.
func monthKey(label string) int {
	t, err := time.Parse("January 2006", label)
	if err != nil {
		return 999999
	}
	return t.Year()*100 + int(t.Month())
}

// SortMonths orders period labels chronologically where they parse as
// "January 2006", lexically otherwise. The order is deterministic for any
// input.
func SortMonths(months []string) {
	sort.SliceStable(months, func(i, j int) bool {
		ki, kj := monthKey(months[i]), monthKey(months[j])
		if ki != kj {
			return ki < kj
		}
		return months[i] < months[j]
	})
}

// UniqueMonths returns the distinct month labels present in records, in
// chronological order.
func UniqueMonths(records []Record) []string {
	seen := make(map[string]struct{})
	var months []string
	for _, r := range records {
		if _, ok := seen[r.Month]; !ok {
			seen[r.Month] = struct{}{}
			months = append(months, r.Month)
		}
	}
	SortMonths(months)
	return months
}

// MonthBefore reports whether month a sorts before b under the same rule
// SortMonths applies.
func MonthBefore(a, b string) bool {
	ka, kb := monthKey(a), monthKey(b)
	if ka != kb {
		return ka < kb
	}
	return a < b
}
