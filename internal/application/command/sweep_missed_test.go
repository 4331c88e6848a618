package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

func TestSweepClosesRecordsPastCutoff(t *testing.T) {
	f := newHandlerFixture()
	f.addEvent("event-old", attendance.EventTypeMeeting, 30*time.Minute)
	f.addEvent("event-live", attendance.EventTypeWorkshop, 6*time.Hour)

	stale := checkIn(t, f, "member-1", "event-old", attendance.EventTypeMeeting)
	live := checkIn(t, f, "member-2", "event-live", attendance.EventTypeWorkshop)

	// Three hours later the old event ended 2.5h ago, past a 2h cutoff.
	// The live event is still running.
	f.now = f.now.Add(3 * time.Hour)

	closed, err := f.sweepHandler().Handle(context.Background(), SweepMissedCommand{Cutoff: 2 * time.Hour})
	assert.NoError(t, err)
	assert.Equal(t, 1, closed)

	swept, _ := f.records.GetByID(context.Background(), stale.ID)
	assert.Equal(t, attendance.StatusMissedCheckout, swept.Status)
	assert.Zero(t, swept.PointsA)
	assert.Zero(t, swept.PointsB)
	assert.Zero(t, swept.DurationMinutes)

	untouched, _ := f.records.GetByID(context.Background(), live.ID)
	assert.True(t, untouched.IsOpen())

	// The swept member's guard and reminders are released; the live member's
	// reminder set survives.
	assert.False(t, f.guard.holds("member-1"))
	assert.True(t, f.guard.holds("member-2"))

	staleReminders, _ := f.reminders.ListByRecord(context.Background(), stale.ID)
	assert.Empty(t, staleReminders)
	liveReminders, _ := f.reminders.ListByRecord(context.Background(), live.ID)
	assert.NotEmpty(t, liveReminders)
}

func TestSweepWithinCutoffLeavesRecordsOpen(t *testing.T) {
	f := newHandlerFixture()
	f.addEvent("event-1", attendance.EventTypeMeeting, 30*time.Minute)
	record := checkIn(t, f, "member-1", "event-1", attendance.EventTypeMeeting)

	// One hour past event end, inside a 2h cutoff.
	f.now = f.now.Add(90 * time.Minute)

	closed, err := f.sweepHandler().Handle(context.Background(), SweepMissedCommand{Cutoff: 2 * time.Hour})
	assert.NoError(t, err)
	assert.Zero(t, closed)

	stored, _ := f.records.GetByID(context.Background(), record.ID)
	assert.True(t, stored.IsOpen())
}

func TestSweepSkipsRecordsWithoutEventMetadata(t *testing.T) {
	f := newHandlerFixture()
	f.addEvent("event-1", attendance.EventTypeMeeting, 30*time.Minute)
	record := checkIn(t, f, "member-1", "event-1", attendance.EventTypeMeeting)

	// Event metadata disappears from the catalog after check-in.
	delete(f.catalog.events, "event-1")
	f.now = f.now.Add(6 * time.Hour)

	closed, err := f.sweepHandler().Handle(context.Background(), SweepMissedCommand{Cutoff: time.Hour})
	assert.NoError(t, err)
	assert.Zero(t, closed)

	stored, _ := f.records.GetByID(context.Background(), record.ID)
	assert.True(t, stored.IsOpen())
}

func TestSweepNegativeCutoffRejected(t *testing.T) {
	f := newHandlerFixture()

	_, err := f.sweepHandler().Handle(context.Background(), SweepMissedCommand{Cutoff: -time.Hour})
	assert.ErrorIs(t, err, shared.ErrNegativeValue)
}

func TestSweepEmptyStore(t *testing.T) {
	f := newHandlerFixture()

	closed, err := f.sweepHandler().Handle(context.Background(), SweepMissedCommand{Cutoff: 2 * time.Hour})
	assert.NoError(t, err)
	assert.Zero(t, closed)
}
