package domain

import (
	"fmt"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

const dateOnlyLayout = "2006-01-02"

// ParseDate accepts RFC3339 timestamps, local datetimes from HTML inputs
// (interpreted as UTC) and plain dates. dateOnly is true for plain dates.
func ParseDate(s string) (t time.Time, dateOnly bool, err error) {
	if t, err := time.Parse(dateOnlyLayout, s); err == nil {
		return t, true, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid date %q", s)
}
