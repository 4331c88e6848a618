package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func verifiedAt(checkedInAt time.Time) *Record {
	return &Record{
		ID:          "rec",
		MemberID:    "member-1",
		EventID:     "event-1",
		EventType:   EventTypeMeeting,
		CheckedInAt: checkedInAt,
		Status:      StatusVerified,
	}
}

func TestCalculateStreakEmptyHistory(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	s := CalculateStreak(nil, now)
	assert.Zero(t, s.CurrentStreak)
	assert.Zero(t, s.LongestStreak)
	assert.Zero(t, s.ThisMonth)
}

func TestCalculateStreakIgnoresUnverified(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	open := verifiedAt(now.Add(-time.Hour))
	open.Status = StatusCheckedIn
	missed := verifiedAt(now.Add(-2 * time.Hour))
	missed.Status = StatusMissedCheckout

	s := CalculateStreak([]*Record{open, missed}, now)
	assert.Zero(t, s.CurrentStreak)
	assert.Zero(t, s.LongestStreak)
	assert.Zero(t, s.ThisMonth)
}

func TestCalculateStreakConsecutiveWeeks(t *testing.T) {
	// 2026-08-30 is a Sunday; the ISO week runs Aug 24 through Aug 30.
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	records := []*Record{
		verifiedAt(time.Date(2026, 8, 28, 19, 0, 0, 0, time.UTC)), // this week
		verifiedAt(time.Date(2026, 8, 19, 19, 0, 0, 0, time.UTC)), // week -1
		verifiedAt(time.Date(2026, 8, 11, 19, 0, 0, 0, time.UTC)), // week -2
	}

	s := CalculateStreak(records, now)
	assert.Equal(t, 3, s.CurrentStreak)
	assert.Equal(t, 3, s.LongestStreak)
}

func TestCalculateStreakGapBreaksCurrentRun(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	records := []*Record{
		verifiedAt(time.Date(2026, 8, 28, 19, 0, 0, 0, time.UTC)), // this week
		verifiedAt(time.Date(2026, 8, 19, 19, 0, 0, 0, time.UTC)), // week -1
		// gap at week -2
		verifiedAt(time.Date(2026, 7, 24, 19, 0, 0, 0, time.UTC)),
		verifiedAt(time.Date(2026, 7, 15, 19, 0, 0, 0, time.UTC)),
		verifiedAt(time.Date(2026, 7, 8, 19, 0, 0, 0, time.UTC)),
		verifiedAt(time.Date(2026, 7, 1, 19, 0, 0, 0, time.UTC)),
	}

	s := CalculateStreak(records, now)
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 4, s.LongestStreak)
}

func TestCalculateStreakAnchorsOnMostRecentWeek(t *testing.T) {
	// No record in the current week. The streak still anchors on the most
	// recent week that has one.
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	records := []*Record{
		verifiedAt(time.Date(2026, 8, 12, 19, 0, 0, 0, time.UTC)),
		verifiedAt(time.Date(2026, 8, 5, 19, 0, 0, 0, time.UTC)),
	}

	s := CalculateStreak(records, now)
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
}

func TestCalculateStreakMultipleRecordsSameWeek(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	records := []*Record{
		verifiedAt(time.Date(2026, 8, 25, 19, 0, 0, 0, time.UTC)),
		verifiedAt(time.Date(2026, 8, 27, 19, 0, 0, 0, time.UTC)),
		verifiedAt(time.Date(2026, 8, 29, 19, 0, 0, 0, time.UTC)),
	}

	s := CalculateStreak(records, now)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 1, s.LongestStreak)
	assert.Equal(t, 3, s.ThisMonth)
}

func TestCalculateStreakPeriodCounts(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	records := []*Record{
		verifiedAt(time.Date(2026, 8, 28, 19, 0, 0, 0, time.UTC)), // this month
		verifiedAt(time.Date(2026, 8, 3, 19, 0, 0, 0, time.UTC)),  // this month
		verifiedAt(time.Date(2026, 7, 15, 19, 0, 0, 0, time.UTC)), // this semester
		verifiedAt(time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)),  // this year
		verifiedAt(time.Date(2025, 11, 10, 19, 0, 0, 0, time.UTC)),
	}

	s := CalculateStreak(records, now)
	assert.Equal(t, 2, s.ThisMonth)
	assert.Equal(t, 3, s.ThisSemester)
	assert.Equal(t, 4, s.ThisYear)
}

func TestCalculateStreakAcrossYearBoundary(t *testing.T) {
	// ISO week 1 of 2026 starts Monday 2025-12-29.
	now := time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)

	records := []*Record{
		verifiedAt(time.Date(2025, 12, 30, 19, 0, 0, 0, time.UTC)), // 2026-W01
		verifiedAt(time.Date(2025, 12, 24, 19, 0, 0, 0, time.UTC)), // 2025-W52
	}

	s := CalculateStreak(records, now)
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
}
