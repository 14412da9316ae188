package datestate

import "time"

// DisplayLayout renders dates like "January 15, 2025".
const DisplayLayout = "January 2, 2006"

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Today returns the current local date at midnight according to clock.
func Today(clock func() time.Time) time.Time {
	if clock == nil {
		clock = time.Now
	}
	return Midnight(clock())
}

// AddDays shifts t by n calendar days and re-normalises to midnight, so a
// DST change never drifts the time of day.
func AddDays(t time.Time, n int) time.Time {
	return Midnight(t.AddDate(0, 0, n))
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	a, b = Midnight(a), Midnight(b)
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / (24 * time.Hour))
}

// FormatDate renders t for the status line.
func FormatDate(t time.Time) string {
	return t.Format(DisplayLayout)
}
