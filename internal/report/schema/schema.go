// Package schema normalizes loosely-schemaed detection exports to the
// canonical record layout. Header aliases and enum value aliases live in
// explicit tables here rather than ad hoc string probing at call sites.
package schema

import (
	"strings"
	"time"

	"github.com/lvonguyen/reportforge/internal/report"
)

// Field names the canonical columns the normalizer can map.
type Field string

const (
	FieldID            Field = "id"
	FieldHostname      Field = "hostname"
	FieldSeverity      Field = "severity"
	FieldTactic        Field = "tactic"
	FieldTechnique     Field = "technique"
	FieldObjective     Field = "objective"
	FieldCountry       Field = "country"
	FieldFileName      Field = "file_name"
	FieldUserName      Field = "user_name"
	FieldOSVersion     Field = "os_version"
	FieldSensorVersion Field = "sensor_version"
	FieldSite          Field = "site"
	FieldOU            Field = "ou"
	FieldMonth         Field = "month"
	FieldStatus        Field = "status"
	FieldTimestamp     Field = "timestamp"
)

// headerAliases maps each canonical field to the header spellings seen in
// Falcon and ticket exports. Matching is case-insensitive and ignores spaces
// and underscores, so each alias is stored in folded form.
var headerAliases = map[Field][]string{
	FieldID:            {"uniqueno", "requestid", "detectionid", "compositeid", "id"},
	FieldHostname:      {"hostname", "host", "computername"},
	FieldSeverity:      {"severityname", "severity"},
	FieldTactic:        {"tactic"},
	FieldTechnique:     {"technique"},
	FieldObjective:     {"objective"},
	FieldCountry:       {"country"},
	FieldFileName:      {"filename"},
	FieldUserName:      {"username", "user"},
	FieldOSVersion:     {"osversion"},
	FieldSensorVersion: {"sensorversion", "agentversion"},
	FieldSite:          {"site"},
	FieldOU:            {"ou"},
	FieldMonth:         {"month", "period"},
	FieldStatus:        {"status", "ticketstatus"},
	FieldTimestamp:     {"detectmalaysiatimeformula", "detectmalaysiatime", "detectiontime", "detecttime", "timestamp"},
}

// severityAliases folds enum spellings to canonical severity buckets.
// Unmapped values pass through unchanged so results stay traceable to the
// original label.
var severityAliases = map[string]string{
	"critical":      "Critical",
	"high":          "High",
	"medium":        "Medium",
	"low":           "Low",
	"informational": "Informational",
	"unknown":       report.Unknown,
}

// statusAliases folds ticket status spellings to the canonical set.
var statusAliases = map[string]string{
	"closed":      "closed",
	"open":        "open",
	"in_progress": "in_progress",
	"in progress": "in_progress",
	"inprogress":  "in_progress",
	"pending":     "pending",
	"on-hold":     "on-hold",
	"on hold":     "on-hold",
	"onhold":      "on-hold",
	"unknown":     report.Unknown,
}

// timestampLayouts are tried in order; exports mix YYYY/MM/DD and DD/MM/YYYY
// with 12-hour clocks.
var timestampLayouts = []string{
	"2006/01/02 3:04:05 PM",
	"02/01/2006 3:04:05 PM",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	time.RFC3339,
}

// Options controls normalization.
type Options struct {
	// Required lists the canonical fields that must have a matching header.
	// Empty means the detection default: id, hostname, severity.
	Required []Field
	// DefaultMonth tags records whose input lacks a month/period column,
	// mirroring per-month file ingestion where the caller names the period.
	DefaultMonth string
}

func (o Options) required() []Field {
	if len(o.Required) == 0 {
		return []Field{FieldID, FieldHostname, FieldSeverity}
	}
	return o.Required
}

// foldHeader canonicalizes a header for alias matching.
func foldHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "")
	h = strings.ReplaceAll(h, "_", "")
	return h
}

// MapColumns resolves each canonical field to a column index in the table,
// -1 when no alias matches.
func MapColumns(t *report.Table) map[Field]int {
	folded := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		folded[i] = foldHeader(c)
	}
	mapping := make(map[Field]int, len(headerAliases))
	for field, aliases := range headerAliases {
		mapping[field] = -1
		for _, alias := range aliases {
			for i, f := range folded {
				if f == alias {
					mapping[field] = i
					break
				}
			}
			if mapping[field] >= 0 {
				break
			}
		}
	}
	return mapping
}

// NormalizeSeverity folds a raw severity label to its canonical bucket.
func NormalizeSeverity(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return report.Unknown
	}
	if canon, ok := severityAliases[strings.ToLower(v)]; ok {
		return canon
	}
	return v
}

// NormalizeStatus folds a raw ticket status to its canonical form.
func NormalizeStatus(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return report.Unknown
	}
	if canon, ok := statusAliases[strings.ToLower(v)]; ok {
		return canon
	}
	return v
}

// ParseTimestamp tries each known export layout. The zero time and false
// mean no layout matched; callers treat that as data absence, not an error.
func ParseTimestamp(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Normalize maps a raw table to canonical records. It fails with a
// *report.SchemaError naming every required field with no matching header.
// Rows missing a required id or hostname are dropped; empty categorical
// cells are filled with the Unknown sentinel.
func Normalize(t *report.Table, opts Options) ([]report.Record, error) {
	mapping := MapColumns(t)

	var missing []string
	for _, f := range opts.required() {
		if mapping[f] < 0 {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return nil, &report.SchemaError{Missing: missing}
	}

	requireID := false
	requireHost := false
	for _, f := range opts.required() {
		switch f {
		case FieldID:
			requireID = true
		case FieldHostname:
			requireHost = true
		}
	}

	cell := func(row int, f Field) string {
		return strings.TrimSpace(t.Cell(row, mapping[f]))
	}

	// Categorical cells distinguish a column that is absent from one that is
	// present but empty: unmapped columns stay "", empty cells in a mapped
	// column become the Unknown sentinel. Aggregators key their degradation
	// message off that difference.
	catCell := func(row int, f Field) string {
		if mapping[f] < 0 {
			return ""
		}
		return orUnknown(cell(row, f))
	}

	records := make([]report.Record, 0, len(t.Rows))
	for i := range t.Rows {
		id := cell(i, FieldID)
		host := cell(i, FieldHostname)
		if requireID && id == "" {
			continue
		}
		if requireHost && host == "" {
			continue
		}

		r := report.Record{
			ID:            id,
			Hostname:      orUnknown(host),
			Severity:      NormalizeSeverity(cell(i, FieldSeverity)),
			Tactic:        catCell(i, FieldTactic),
			Technique:     catCell(i, FieldTechnique),
			Objective:     catCell(i, FieldObjective),
			Country:       catCell(i, FieldCountry),
			FileName:      catCell(i, FieldFileName),
			UserName:      cell(i, FieldUserName),
			OSVersion:     cell(i, FieldOSVersion),
			SensorVersion: cell(i, FieldSensorVersion),
			Site:          cell(i, FieldSite),
			OU:            cell(i, FieldOU),
			Status:        NormalizeStatus(cell(i, FieldStatus)),
			RawTime:       cell(i, FieldTimestamp),
		}

		r.Month = cell(i, FieldMonth)
		if r.Month == "" {
			r.Month = opts.DefaultMonth
		}
		if r.Month == "" {
			r.Month = report.Unknown
		}

		if ts, ok := ParseTimestamp(r.RawTime); ok {
			r.DetectedAt = ts
		}

		records = append(records, r)
	}
	return records, nil
}

func orUnknown(v string) string {
	if v == "" {
		return report.Unknown
	}
	return v
}
