package util

import (
	"strconv"
	"time"
)

// ParseTime accepts RFC3339, RFC3339Nano, a calendar date (2006-01-02) or unix
// seconds. Calendar dates are returned at midnight UTC.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		if ts > 1e11 {
			return time.UnixMilli(ts).UTC(), true
		}
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// TruncateDay drops the time of day, keeping the calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday of t's ISO week at midnight UTC.
func WeekStart(t time.Time) time.Time {
	day := TruncateDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
