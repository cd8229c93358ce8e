package service

import (
	"time"
)

// NextSettlementCutoff returns the next occurrence of the daily
// settlement hour (UTC) strictly after now. A loan created at 03:59
// is due at 04:00 the same day; one created at 04:00 is due tomorrow.
func NextSettlementCutoff(now time.Time, cutoffHour int) time.Time {
	now = now.UTC()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), cutoffHour, 0, 0, 0, time.UTC)

	if now.After(cutoff) || now.Equal(cutoff) {
		cutoff = cutoff.AddDate(0, 0, 1)
	}

	return cutoff
}

// AdvanceSettlementCutoff returns the settlement hour on the day after
// now, used when a settlement pass moves a loan's due date forward.
func AdvanceSettlementCutoff(now time.Time, cutoffHour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), cutoffHour, 0, 0, 0, time.UTC)
	return next.AddDate(0, 0, 1)
}
