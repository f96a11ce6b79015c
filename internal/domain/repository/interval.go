package repository

// Interval is the bar resolution requested from providers and stores.
type Interval string

const (
	IntervalDaily  Interval = "daily"
	IntervalWeekly Interval = "weekly"
)

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	switch iv {
	case IntervalDaily, IntervalWeekly:
		return true
	default:
		return false
	}
}

// DefaultInterval returns the default interval.
func DefaultInterval() Interval { return IntervalDaily }

// NormalizeInterval converts raw string to a valid interval (or default).
func NormalizeInterval(s string) Interval {
	if s == "" {
		return DefaultInterval()
	}
	iv := Interval(s)
	if IsValidInterval(iv) {
		return iv
	}
	return DefaultInterval()
}
