// Package timeutil provides calendar-period helpers used by streak and period
// count calculations. All boundaries are computed in UTC so that streak math
// is deterministic regardless of server timezone.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// StartOfDay returns the start of the day (00:00:00) in UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfWeek returns the start of the ISO week (Monday 00:00:00) in UTC.
func StartOfWeek(t time.Time) time.Time {
	u := t.UTC()
	weekday := int(u.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(u.AddDate(0, 0, -daysToSubtract))
}

// StartOfMonth returns the start of the month in UTC.
func StartOfMonth(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// StartOfYear returns the start of the year in UTC.
func StartOfYear(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
}

// StartOfSemester returns the start of the academic semester containing t.
// Semesters are fixed calendar halves: January-June and July-December.
func StartOfSemester(t time.Time) time.Time {
	u := t.UTC()
	if u.Month() <= time.June {
		return time.Date(u.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(u.Year(), time.July, 1, 0, 0, 0, 0, time.UTC)
}

// WeekKey returns the ISO year and week number identifying the week of t.
// Two times share a WeekKey exactly when they fall in the same ISO week.
func WeekKey(t time.Time) (year, week int) {
	return t.UTC().ISOWeek()
}

// SameWeek checks whether two times fall in the same ISO week.
func SameWeek(a, b time.Time) bool {
	ay, aw := WeekKey(a)
	by, bw := WeekKey(b)
	return ay == by && aw == bw
}

// PreviousWeek returns a time guaranteed to fall in the ISO week before t.
func PreviousWeek(t time.Time) time.Time {
	return StartOfWeek(t).AddDate(0, 0, -7)
}

// SameMonth checks whether two times fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	au, bu := a.UTC(), b.UTC()
	return au.Year() == bu.Year() && au.Month() == bu.Month()
}

// SameYear checks whether two times fall in the same calendar year.
func SameYear(a, b time.Time) bool {
	return a.UTC().Year() == b.UTC().Year()
}
