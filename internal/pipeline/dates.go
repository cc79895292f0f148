package pipeline

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// dateLayouts are the string date formats accepted for application dates,
// tried in order. Upstream batches mix ISO dates, timestamps, and the
// occasional North American slash format.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// Epoch-millisecond bounds considered plausible for a permit date. Values
// outside [2000, 2100) are rejected rather than silently producing dates
// decades off. The floor also keeps small numeric strings (a bare year, a
// misrouted count column) from parsing as dates near 1970.
const (
	minEpochMillis = 946684800000
	maxEpochMillis = 4102444800000
)

// parseApplicationDate parses an upstream application-date value: epoch
// milliseconds (the feature service), a date-like string (the CSV download),
// or an already-typed time. Returns false for anything unparsable.
func parseApplicationDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case float64:
		return fromEpochMillis(int64(t))
	case int64:
		return fromEpochMillis(t)
	case int:
		return fromEpochMillis(int64(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		// Numeric strings are epoch milliseconds from a CSV export of the API.
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromEpochMillis(ms)
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
		return time.Time{}, false
	}
	return time.Time{}, false
}

func fromEpochMillis(ms int64) (time.Time, bool) {
	if ms < minEpochMillis || ms >= maxEpochMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// validateDates parses each record's application date in place (replacing the
// raw value with a time.Time) and drops records whose date is missing or
// unparsable. Returns the surviving records and the dropped count.
func validateDates(records []record) ([]record, int) {
	valid := make([]record, 0, len(records))
	invalid := 0

	for _, rec := range records {
		parsed, ok := parseApplicationDate(rec[fieldApplicationDate])
		if !ok {
			invalid++
			continue
		}
		rec[fieldApplicationDate] = parsed
		valid = append(valid, rec)
	}

	if invalid > 0 {
		zap.L().Info("dates: dropped records with unparsable application dates",
			zap.Int("records_removed", invalid),
			zap.Int("records_retained", len(valid)),
		)
	}

	return valid, invalid
}

// filterRecent retains records whose application date falls on or after the
// recency cutoff. The cutoff is relative to the most recent application date
// in the batch (latest minus windowMonths) rather than wall-clock time, so a
// stale upstream extract still yields its newest year of permits and the
// transform stays deterministic for a given input.
func filterRecent(records []record, windowMonths int) (kept []record, dropped int, cutoff time.Time) {
	if len(records) == 0 {
		return nil, 0, time.Time{}
	}

	var latest time.Time
	for _, rec := range records {
		if d := rec[fieldApplicationDate].(time.Time); d.After(latest) {
			latest = d
		}
	}
	cutoff = latest.AddDate(0, -windowMonths, 0)

	kept = make([]record, 0, len(records))
	for _, rec := range records {
		if rec[fieldApplicationDate].(time.Time).Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, rec)
	}

	zap.L().Info("dates: recency filter applied",
		zap.Time("cutoff", cutoff),
		zap.Time("latest", latest),
		zap.Int("records_retained", len(kept)),
		zap.Int("records_removed", dropped),
	)

	return kept, dropped, cutoff
}
