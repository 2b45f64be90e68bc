package service

import (
	"fmt"
	"time"

	"faktura/internal/model"
)

// NextRunDate advances a run date by one interval. Month-based intervals
// clamp to the last day of the target month, so an automation anchored on
// the 31st runs on Feb 28/29 instead of silently drifting into March.
func NextRunDate(from time.Time, interval string) (time.Time, error) {
	from = dateOnly(from)
	switch interval {
	case model.IntervalWeekly:
		return from.AddDate(0, 0, 7), nil
	case model.IntervalEvery2Weeks:
		return from.AddDate(0, 0, 14), nil
	case model.IntervalMonthly:
		return addMonthsClamped(from, 1), nil
	case model.IntervalEvery2Months:
		return addMonthsClamped(from, 2), nil
	case model.IntervalQuarterly:
		return addMonthsClamped(from, 3), nil
	case model.IntervalEvery6Months:
		return addMonthsClamped(from, 6), nil
	case model.IntervalYearly:
		return addMonthsClamped(from, 12), nil
	default:
		return time.Time{}, fmt.Errorf("unbekanntes Intervall %q", interval)
	}
}

// addMonthsClamped is AddDate without its overflow behavior: Jan 31 + 1
// month is Feb 28 (or 29), not Mar 3.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
	target := first.AddDate(0, months, 0)

	if last := daysInMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
