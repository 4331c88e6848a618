package attendance

import (
	"sort"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/pkg/timeutil"
)

// Streak summarizes a member's engagement derived from attendance history.
// The streak granularity is fixed policy: distinct ISO weeks. A week counts
// toward a streak when it contains at least one verified record.
type Streak struct {
	CurrentStreak int
	LongestStreak int

	ThisMonth    int
	ThisSemester int
	ThisYear     int
}

// CalculateStreak derives streak metrics from a member's attendance history.
// Pure function: no I/O, deterministic given the same records and "now".
// Only verified records qualify; missed checkouts and incomplete records are
// ignored. The input order does not matter.
func CalculateStreak(records []*Record, now time.Time) Streak {
	verified := make([]*Record, 0, len(records))
	for _, r := range records {
		if r.Status == StatusVerified {
			verified = append(verified, r)
		}
	}
	if len(verified) == 0 {
		return Streak{}
	}

	// Most recent first.
	sort.Slice(verified, func(i, j int) bool {
		return verified[i].CheckedInAt.After(verified[j].CheckedInAt)
	})

	s := Streak{
		ThisMonth:    countSince(verified, timeutil.StartOfMonth(now)),
		ThisSemester: countSince(verified, timeutil.StartOfSemester(now)),
		ThisYear:     countSince(verified, timeutil.StartOfYear(now)),
	}

	weeks := distinctWeeks(verified)

	// Current streak walks backward from the most recent week holding a
	// verified record, stopping at the first gap. The walk anchors on that
	// week even when it is not the current one.
	s.CurrentStreak = walkBack(weeks, weeks[0])

	// Longest streak over the full history.
	for i := range weeks {
		if run := walkBack(weeks[i:], weeks[i]); run > s.LongestStreak {
			s.LongestStreak = run
		}
	}

	return s
}

type weekMark struct {
	year  int
	week  int
	start time.Time
}

// distinctWeeks reduces records (most recent first) to their distinct ISO
// weeks, preserving order.
func distinctWeeks(records []*Record) []weekMark {
	var weeks []weekMark
	for _, r := range records {
		y, w := timeutil.WeekKey(r.CheckedInAt)
		if n := len(weeks); n > 0 && weeks[n-1].year == y && weeks[n-1].week == w {
			continue
		}
		weeks = append(weeks, weekMark{year: y, week: w, start: timeutil.StartOfWeek(r.CheckedInAt)})
	}
	return weeks
}

// walkBack counts consecutive weeks in the list starting from anchor.
func walkBack(weeks []weekMark, anchor weekMark) int {
	run := 0
	expected := anchor.start
	for _, wm := range weeks {
		if !timeutil.SameWeek(wm.start, expected) {
			break
		}
		run++
		expected = timeutil.PreviousWeek(expected)
	}
	return run
}

// countSince counts verified records with CheckedInAt at or after the boundary.
func countSince(verified []*Record, boundary time.Time) int {
	count := 0
	for _, r := range verified {
		if !r.CheckedInAt.Before(boundary) {
			count++
		}
	}
	return count
}
