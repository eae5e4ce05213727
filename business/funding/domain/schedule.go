package domain

import "time"

// NextFundingTime computes the next funding settlement for a venue that does
// not publish one. Funding boundaries fall on multiples of the interval
// measured from 00:00 UTC; the result is the nearest strictly future boundary.
func NextFundingTime(now time.Time, intervalHours int) time.Time {
	if intervalHours <= 0 {
		intervalHours = IntervalEightHourly
	}

	utc := now.UTC()
	midnight := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	interval := time.Duration(intervalHours) * time.Hour

	elapsed := utc.Sub(midnight)
	return midnight.Add(elapsed.Truncate(interval) + interval)
}

// TimeToFundingHours returns the hours until t, or 0 when t is not in the
// future relative to now.
func TimeToFundingHours(now, t time.Time) float64 {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return d.Hours()
}
