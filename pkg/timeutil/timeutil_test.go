package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDay(t *testing.T) {
	in := time.Date(2026, 8, 30, 15, 42, 7, 123, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), StartOfDay(in))
}

func TestStartOfWeek(t *testing.T) {
	// 2026-08-30 is a Sunday; the ISO week starts Monday 2026-08-24.
	sunday := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

	want := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, StartOfWeek(sunday))
	assert.Equal(t, want, StartOfWeek(monday))
}

func TestStartOfMonthAndYear(t *testing.T) {
	in := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), StartOfMonth(in))
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), StartOfYear(in))
}

func TestStartOfSemester(t *testing.T) {
	spring := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), StartOfSemester(spring))

	june := time.Date(2026, 6, 30, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), StartOfSemester(june))

	fall := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), StartOfSemester(fall))
}

func TestSameWeek(t *testing.T) {
	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC)
	nextMonday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameWeek(monday, sunday))
	assert.False(t, SameWeek(sunday, nextMonday))
}

func TestWeekKeyAcrossYearBoundary(t *testing.T) {
	// Dec 29 2025 is a Monday and belongs to ISO week 1 of 2026.
	y, w := WeekKey(time.Date(2025, 12, 29, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 2026, y)
	assert.Equal(t, 1, w)
}

func TestPreviousWeek(t *testing.T) {
	in := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)
	prev := PreviousWeek(in)

	assert.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), prev)
	assert.False(t, SameWeek(in, prev))
	assert.True(t, SameWeek(prev, time.Date(2026, 8, 23, 23, 0, 0, 0, time.UTC)))
}

func TestSameMonthAndYear(t *testing.T) {
	a := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)
	c := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameMonth(a, b))
	assert.False(t, SameMonth(b, c))
	assert.True(t, SameYear(a, c))
	assert.False(t, SameYear(a, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)))
}
