// Package incubation resolves condition labels to the lookback window used
// when sizing each hop of a chain traversal.
package incubation

import (
	"encoding/json"
	"strings"
)

// DefaultDays is the window applied for unrecognized or missing labels. A
// conservative middle ground: wide enough to catch most conditions, narrow
// enough to avoid notifying on ancient contacts.
const DefaultDays = 30

// Maximum incubation periods in days, keyed by lowercase label.
var incubationDays = map[string]int{
	"chlamydia":             21,
	"gonorrhea":             14,
	"syphilis":              90,
	"hiv":                   30,
	"hepatitis b":           180,
	"hpv":                   180,
	"herpes":                21,
	"trichomoniasis":        28,
	"mycoplasma genitalium": 35,
}

// Days resolves a single label, case-insensitive and whitespace-trimmed.
func Days(label string) int {
	if days, ok := incubationDays[strings.ToLower(strings.TrimSpace(label))]; ok {
		return days
	}
	return DefaultDays
}

// MaxDays returns the maximum incubation period across all labels. Empty
// input returns the default.
func MaxDays(labels []string) int {
	if len(labels) == 0 {
		return DefaultDays
	}
	max := 0
	for _, label := range labels {
		if d := Days(label); d > max {
			max = d
		}
	}
	return max
}

// MaxDaysJSON is the convenience form for labels stored as a JSON-encoded
// array string. Malformed JSON falls back to the default rather than failing
// the report.
func MaxDaysJSON(raw string) int {
	labels, err := ParseLabels(raw)
	if err != nil {
		return DefaultDays
	}
	return MaxDays(labels)
}

// ParseLabels decodes a JSON array string into a label list. The payload
// arrives loosely typed from the device; parse defensively.
func ParseLabels(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil, err
	}
	return labels, nil
}
