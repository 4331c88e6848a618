package reminder

import (
	"context"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
)

// Repository defines the interface for reminder persistence.
// The durable store is the source of truth for outstanding reminders.
type Repository interface {
	// SaveAll persists a batch of reminders.
	SaveAll(ctx context.Context, reminders []*ScheduledReminder) error

	// ListByRecord returns every reminder referencing the record,
	// regardless of state.
	ListByRecord(ctx context.Context, recordID attendance.RecordID) ([]*ScheduledReminder, error)

	// DeleteByRecord removes every reminder referencing the record.
	// Returns the number removed; zero is not an error.
	DeleteByRecord(ctx context.Context, recordID attendance.RecordID) (int, error)

	// ListPending returns all reminders still in the scheduled state,
	// ordered by fire time.
	ListPending(ctx context.Context) ([]*ScheduledReminder, error)

	// MarkDelivered transitions a reminder to delivered.
	MarkDelivered(ctx context.Context, id ReminderID, at time.Time) error
}

// FirePayload identifies a reminder when its timer fires. The payload round
// trips through the dispatch layer opaquely.
type FirePayload struct {
	ReminderID ReminderID          `json:"reminder_id"`
	RecordID   attendance.RecordID `json:"record_id"`
	MemberID   attendance.MemberID `json:"member_id"`
	Kind       Kind                `json:"kind"`
}

// TimerHandle identifies a registered timer for later cancellation.
type TimerHandle string

// Dispatch is the abstract "schedule a callback at time T" capability. It may
// be backed by OS timers, delayed queue delivery, or a polling sweep. In-flight
// timers do not survive a process boundary; PruneExpired reconciles on start.
type Dispatch interface {
	// RegisterTimer arranges for the payload to be delivered at fireAt.
	RegisterTimer(ctx context.Context, fireAt time.Time, payload FirePayload) (TimerHandle, error)

	// CancelTimer cancels a pending timer. Cancelling an unknown or already
	// fired handle is a no-op.
	CancelTimer(ctx context.Context, handle TimerHandle) error
}

// FireHandler is invoked by the dispatch layer when a timer fires. It is the
// sole re-entry point into the core outside a direct caller.
type FireHandler func(ctx context.Context, payload FirePayload)

// Sender delivers the actual notification to the member. Push delivery lives
// outside this core; implementations are best-effort.
type Sender interface {
	Send(ctx context.Context, memberID attendance.MemberID, kind Kind, message string) error
}
