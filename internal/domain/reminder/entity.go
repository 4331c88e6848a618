// Package reminder contains the domain model for scheduled, cancellable,
// time-triggered notifications tied to open attendance records.
// This is a pure domain layer with zero external dependencies.
package reminder

import (
	"errors"
	"sort"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
)

// Domain errors for the reminder package.
var (
	ErrInvalidReminderID = errors.New("reminder: invalid reminder ID")
	ErrInvalidRecordID   = errors.New("reminder: invalid record ID")
	ErrUnknownKind       = errors.New("reminder: unknown kind")
	ErrAlreadyFinalized  = errors.New("reminder: already delivered or cancelled")
)

// ReminderID represents a unique identifier for a scheduled reminder.
type ReminderID string

// IsValid checks if the reminder ID is valid.
func (id ReminderID) IsValid() bool {
	return id != ""
}

// String returns the string representation of ReminderID.
func (id ReminderID) String() string {
	return string(id)
}

// Kind classifies a reminder.
type Kind string

const (
	// KindCheckoutReminder nudges the member to check out before event end.
	KindCheckoutReminder Kind = "checkout_reminder"

	// KindMotivation is a single encouragement message near event end.
	KindMotivation Kind = "motivation"

	// KindDeadlineAlert fires after event end when the record is still open.
	KindDeadlineAlert Kind = "deadline_alert"
)

// IsValid checks that the kind is recognized.
func (k Kind) IsValid() bool {
	switch k {
	case KindCheckoutReminder, KindMotivation, KindDeadlineAlert:
		return true
	default:
		return false
	}
}

// State represents the lifecycle of a reminder.
// Transitions: scheduled → delivered, or scheduled → cancelled. Nothing else.
type State string

const (
	StateScheduled State = "scheduled"
	StateDelivered State = "delivered"
	StateCancelled State = "cancelled"
)

// ScheduledReminder is one pending timed notification. The durable store is
// the source of truth for which reminders are outstanding; the dispatch layer
// is only a best-effort executor.
type ScheduledReminder struct {
	ID                 ReminderID
	AttendanceRecordID attendance.RecordID
	MemberID           attendance.MemberID
	FireAt             time.Time
	Kind               Kind
	State              State
	DeliveredAt        *time.Time

	CreatedAt time.Time
}

// NewScheduledReminder creates a reminder in the scheduled state.
func NewScheduledReminder(id ReminderID, recordID attendance.RecordID, memberID attendance.MemberID, fireAt time.Time, kind Kind, now time.Time) (*ScheduledReminder, error) {
	if !id.IsValid() {
		return nil, ErrInvalidReminderID
	}
	if !recordID.IsValid() {
		return nil, ErrInvalidRecordID
	}
	if !kind.IsValid() {
		return nil, ErrUnknownKind
	}

	return &ScheduledReminder{
		ID:                 id,
		AttendanceRecordID: recordID,
		MemberID:           memberID,
		FireAt:             fireAt,
		Kind:               kind,
		State:              StateScheduled,
		CreatedAt:          now,
	}, nil
}

// MarkDelivered transitions scheduled → delivered.
func (r *ScheduledReminder) MarkDelivered(now time.Time) error {
	if r.State != StateScheduled {
		return ErrAlreadyFinalized
	}
	r.State = StateDelivered
	r.DeliveredAt = &now
	return nil
}

// Cancel transitions scheduled → cancelled. Cancelling a reminder that is
// already delivered or cancelled is a no-op, not an error: cancellation must
// be idempotent and safe to race against the reminder's own firing.
func (r *ScheduledReminder) Cancel() {
	if r.State == StateScheduled {
		r.State = StateCancelled
	}
}

// IsPending returns true while the reminder awaits delivery.
func (r *ScheduledReminder) IsPending() bool {
	return r.State == StateScheduled
}

// Config controls which reminders a schedule call plans.
type Config struct {
	// Enabled gates the whole reminder set.
	Enabled bool

	// CheckoutOffsets are minute offsets before event end for checkout
	// reminders, e.g. {30, 15, 5}.
	CheckoutOffsets []int

	// Motivation adds one motivation reminder at MotivationOffset minutes
	// before event end.
	Motivation       bool
	MotivationOffset int

	// DeadlineAlert adds one alert at DeadlineOffset minutes after event end.
	DeadlineAlert  bool
	DeadlineOffset int
}

// DefaultConfig returns the chapter-wide reminder policy.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		CheckoutOffsets:  []int{30, 15, 5},
		Motivation:       true,
		MotivationOffset: 15,
		DeadlineAlert:    true,
		DeadlineOffset:   5,
	}
}

// PlannedReminder is one entry produced by Plan before IDs are assigned.
type PlannedReminder struct {
	FireAt time.Time
	Kind   Kind
}

// Plan computes the reminder set for an event ending at eventEnd. Offsets
// whose fire time is not in the future relative to now are silently skipped,
// never scheduled into the past. The result is ordered by fire time.
func Plan(cfg Config, eventEnd, now time.Time) []PlannedReminder {
	if !cfg.Enabled {
		return nil
	}

	var planned []PlannedReminder
	add := func(fireAt time.Time, kind Kind) {
		if fireAt.After(now) {
			planned = append(planned, PlannedReminder{FireAt: fireAt, Kind: kind})
		}
	}

	for _, offset := range cfg.CheckoutOffsets {
		add(eventEnd.Add(-time.Duration(offset)*time.Minute), KindCheckoutReminder)
	}
	if cfg.Motivation {
		add(eventEnd.Add(-time.Duration(cfg.MotivationOffset)*time.Minute), KindMotivation)
	}
	if cfg.DeadlineAlert {
		add(eventEnd.Add(time.Duration(cfg.DeadlineOffset)*time.Minute), KindDeadlineAlert)
	}

	sort.Slice(planned, func(i, j int) bool {
		return planned[i].FireAt.Before(planned[j].FireAt)
	})
	return planned
}
