package domain

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// NormalizeDate validates an ISO date (YYYY-MM-DD) or RFC 3339 timestamp and
// returns it in canonical form. Timestamps are converted to UTC.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", Validationf("date is required")
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.Format(dateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(time.RFC3339), nil
	}
	return "", Validationf("malformed date %q: want YYYY-MM-DD or RFC 3339", s)
}

// FormatTimestamp renders t the way used dates and recipe timestamps are
// stored: RFC 3339 in UTC. Period rollups read the year and month straight
// from this text, so used dates fall into UTC years and months.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
