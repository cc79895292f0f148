package pipeline

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// categoricalFields are the text fields standardized to title case so that
// "RESIDENTIAL", "residential", and "Residential " group together downstream.
var categoricalFields = []string{
	fieldPermitType,
	fieldStatus,
	fieldWorkType,
	fieldSubWorkType,
}

// parseCurrency parses an upstream construction value: a number, or a string
// with optional currency symbol and thousands separators ("$1,250,000.00").
// Returns false when the value cannot be parsed.
func parseCurrency(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "CAD")
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// coerceValues parses each record's construction value in place, defaulting
// unparsable or negative values to 0 instead of dropping the row, and
// standardizes the categorical text fields (trim + title case). Returns the
// number of records whose value was defaulted. Defaulting is logged so the
// degraded-field policy stays observable.
func coerceValues(records []record) (defaulted int) {
	for _, rec := range records {
		value, ok := parseCurrency(rec[fieldValue])
		if !ok || value < 0 {
			value = 0
			defaulted++
		}
		rec[fieldValue] = value

		for _, f := range categoricalFields {
			rec[f] = standardizeText(stringField(rec, f))
		}
		rec[fieldDescription] = strings.TrimSpace(stringField(rec, fieldDescription))
		rec[fieldAddress] = strings.TrimSpace(stringField(rec, fieldAddress))
	}

	if defaulted > 0 {
		zap.L().Warn("coerce: defaulted unparsable construction values to zero",
			zap.Int("defaulted_values", defaulted),
			zap.Int("records", len(records)),
		)
	}

	return defaulted
}

// standardizeText trims whitespace and normalizes capitalization to title
// case for consistent grouping ("NEW CONSTRUCTION" -> "New Construction").
func standardizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == missingText {
		return missingText
	}
	return titleCaser.String(strings.ToLower(s))
}

// parseOptionalUnits parses a unit-count field that may be absent, numeric,
// or a numeric string. Returns nil when absent or unparsable.
func parseOptionalUnits(v any) *int {
	switch t := v.(type) {
	case float64:
		n := int(t)
		return &n
	case int:
		n := t
		return &n
	case int64:
		n := int(t)
		return &n
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}
