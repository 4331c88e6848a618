package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/reminder"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

func TestCheckInOpensRecordAndSchedulesReminders(t *testing.T) {
	f := newHandlerFixture()
	f.addEvent("event-1", attendance.EventTypeMeeting, 2*time.Hour)

	h := f.checkInHandler(reminder.DefaultConfig())

	record, err := h.Handle(context.Background(), CheckInCommand{
		MemberID:           "member-1",
		EventID:            "event-1",
		EventType:          "meeting",
		VerificationMethod: "code",
		Location:           "Barn A",
	})
	assert.NoError(t, err)
	assert.True(t, record.IsOpen())
	assert.Equal(t, f.now, record.CheckedInAt)

	stored, err := f.records.GetByID(context.Background(), record.ID)
	assert.NoError(t, err)
	assert.NotNil(t, stored)

	assert.True(t, f.guard.holds("member-1"))
	assert.Equal(t, 5, f.reminders.count())
}

func TestCheckInValidation(t *testing.T) {
	f := newHandlerFixture()
	h := f.checkInHandler(reminder.DefaultConfig())

	tests := []struct {
		name string
		cmd  CheckInCommand
	}{
		{"missing member", CheckInCommand{EventID: "e", EventType: "meeting", VerificationMethod: "code"}},
		{"missing event", CheckInCommand{MemberID: "m", EventType: "meeting", VerificationMethod: "code"}},
		{"unknown event type", CheckInCommand{MemberID: "m", EventID: "e", EventType: "party", VerificationMethod: "code"}},
		{"unknown method", CheckInCommand{MemberID: "m", EventID: "e", EventType: "meeting", VerificationMethod: "psychic"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			record, err := h.Handle(context.Background(), tc.cmd)
			assert.Nil(t, record)
			assert.Error(t, err)
		})
	}
}

func TestCheckInRejectsSecondOpenRecord(t *testing.T) {
	f := newHandlerFixture()
	f.addEvent("event-1", attendance.EventTypeMeeting, 2*time.Hour)
	f.addEvent("event-2", attendance.EventTypeWorkshop, 3*time.Hour)

	h := f.checkInHandler(reminder.DefaultConfig())

	_, err := h.Handle(context.Background(), CheckInCommand{
		MemberID: "member-1", EventID: "event-1", EventType: "meeting", VerificationMethod: "code",
	})
	assert.NoError(t, err)

	// Second check-in for the same member, even to a different event.
	record, err := h.Handle(context.Background(), CheckInCommand{
		MemberID: "member-1", EventID: "event-2", EventType: "workshop", VerificationMethod: "code",
	})
	assert.Nil(t, record)
	assert.ErrorIs(t, err, shared.ErrDuplicateCheckIn)

	// A different member is unaffected.
	_, err = h.Handle(context.Background(), CheckInCommand{
		MemberID: "member-2", EventID: "event-2", EventType: "workshop", VerificationMethod: "code",
	})
	assert.NoError(t, err)
}

func TestCheckInGuardRejectionWins(t *testing.T) {
	f := newHandlerFixture()
	f.addEvent("event-1", attendance.EventTypeMeeting, 2*time.Hour)
	f.guard.rejected = true

	h := f.checkInHandler(reminder.DefaultConfig())

	record, err := h.Handle(context.Background(), CheckInCommand{
		MemberID: "member-1", EventID: "event-1", EventType: "meeting", VerificationMethod: "code",
	})
	assert.Nil(t, record)
	assert.ErrorIs(t, err, shared.ErrDuplicateCheckIn)
}

func TestCheckInSucceedsWithoutEventMetadata(t *testing.T) {
	// The catalog has no entry for the event: the check-in still succeeds,
	// only the reminder set is skipped.
	f := newHandlerFixture()
	h := f.checkInHandler(reminder.DefaultConfig())

	record, err := h.Handle(context.Background(), CheckInCommand{
		MemberID: "member-1", EventID: "event-missing", EventType: "meeting", VerificationMethod: "code",
	})
	assert.NoError(t, err)
	assert.True(t, record.IsOpen())
	assert.Zero(t, f.reminders.count())
}

func TestCheckInWithRemindersDisabled(t *testing.T) {
	f := newHandlerFixture()
	f.addEvent("event-1", attendance.EventTypeMeeting, 2*time.Hour)

	cfg := reminder.DefaultConfig()
	cfg.Enabled = false
	h := f.checkInHandler(cfg)

	record, err := h.Handle(context.Background(), CheckInCommand{
		MemberID: "member-1", EventID: "event-1", EventType: "meeting", VerificationMethod: "code",
	})
	assert.NoError(t, err)
	assert.NotNil(t, record)
	assert.Zero(t, f.reminders.count())
}

func TestCheckInWorksWithNilGuard(t *testing.T) {
	f := newHandlerFixture()
	f.addEvent("event-1", attendance.EventTypeMeeting, 2*time.Hour)

	h := NewCheckInHandler(
		f.records, f.catalog, f.scheduler, nil,
		&memIDGen{n: 200}, nil, nil, nil, reminder.DefaultConfig(),
	).WithClock(func() time.Time { return f.now })

	record, err := h.Handle(context.Background(), CheckInCommand{
		MemberID: "member-1", EventID: "event-1", EventType: "meeting", VerificationMethod: "code",
	})
	assert.NoError(t, err)
	assert.True(t, record.IsOpen())
}
