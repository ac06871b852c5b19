package model

import (
	"fmt"
	"time"
)

const (
	DateLayout    = "2006-01-02"
	ClockLayout   = "15:04"
	MinutesPerDay = 24 * 60
)

// ParseClock converts an HH:MM (24h) label into minutes since midnight.
func ParseClock(label string) (int, error) {
	t, err := time.Parse(ClockLayout, label)
	if err != nil || len(label) != len(ClockLayout) {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", label)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as HH:MM. Values past midnight wrap.
func FormatClock(minutes int) string {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate parses a YYYY-MM-DD calendar date in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	return t, nil
}
