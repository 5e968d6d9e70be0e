package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateOnly = "2006-01-02"

// ParseRange reads optional lower and upper date bounds. Each accepts RFC 3339
// or a bare YYYY-MM-DD date; a bare upper bound covers the whole of that day.
func ParseRange(from, to string) (*time.Time, *time.Time, error) {
	var lo, hi *time.Time
	if s := strings.TrimSpace(from); s != "" {
		t, err := parseDate(s, false)
		if err != nil {
			return nil, nil, fmt.Errorf("date_from: %w", err)
		}
		lo = &t
	}
	if s := strings.TrimSpace(to); s != "" {
		t, err := parseDate(s, true)
		if err != nil {
			return nil, nil, fmt.Errorf("date_to: %w", err)
		}
		hi = &t
	}
	if lo != nil && hi != nil && hi.Before(*lo) {
		return nil, nil, errors.New("date_to must not be before date_from")
	}
	return lo, hi, nil
}

func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return time.Time{}, errors.New("must be RFC3339 or YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
