// internal/pkg/period/period.go
package period

import "time"

// Unit is a billing interval unit.
type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

// Valid reports whether u is a known interval unit.
func (u Unit) Valid() bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	}
	return false
}

// NextEnd computes the end of a billing period that starts at from.
// Month and year arithmetic keeps the same day of month, clamped to the
// target month's length (Jan 31 + 1 month = Feb 28/29). An unrecognized
// unit falls back to one calendar month.
func NextEnd(from time.Time, unit Unit, count int) time.Time {
	if count < 1 {
		count = 1
	}
	switch unit {
	case UnitDay:
		return from.AddDate(0, 0, count)
	case UnitWeek:
		return from.AddDate(0, 0, 7*count)
	case UnitMonth:
		return addMonthsClamped(from, count)
	case UnitYear:
		return addMonthsClamped(from, 12*count)
	default:
		return addMonthsClamped(from, 1)
	}
}

// TrialEnd computes the end of a trial window of the given length in days.
func TrialEnd(from time.Time, days int) time.Time {
	return from.AddDate(0, 0, days)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	// Normalize the target month via the first of the month, then clamp
	// the day to the target month's length.
	first := time.Date(y, m+time.Month(months), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	// Day zero of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
