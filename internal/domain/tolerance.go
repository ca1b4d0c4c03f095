package domain

import "time"

// AllowedGap returns the longest gap after e that still chains a following
// outage. Outages lasting CriticalHours or longer get the wider tolerance.
func (s Settings) AllowedGap(e Event, effectiveEnd time.Time) time.Duration {
	hours := effectiveEnd.Sub(e.Start).Hours()
	if hours >= float64(s.CriticalHours) {
		return time.Duration(s.ToleranceAboveMinutes) * time.Minute
	}
	return time.Duration(s.ToleranceBelowMinutes) * time.Minute
}
