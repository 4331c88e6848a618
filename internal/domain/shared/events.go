// Package shared contains common domain types, errors, and events
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Attendance events
	EventMemberCheckedIn  EventType = "attendance.checked_in"
	EventMemberCheckedOut EventType = "attendance.checked_out"
	EventCheckoutMissed   EventType = "attendance.checkout_missed"
	EventPointsAwarded    EventType = "attendance.points_awarded"

	// Reminder events
	EventRemindersScheduled EventType = "reminder.scheduled"
	EventRemindersCancelled EventType = "reminder.cancelled"
	EventReminderFired      EventType = "reminder.fired"
	EventReminderFailed     EventType = "reminder.failed"

	// System events
	EventSweepCompleted EventType = "system.sweep_completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a domain event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events to interested subscribers.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber registers handlers for domain events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Attendance Events
// ═══════════════════════════════════════════════════════════════════════════

// MemberCheckedInEvent is emitted when a member opens an attendance record.
type MemberCheckedInEvent struct {
	BaseEvent
	MemberID  string `json:"member_id"`
	EventID   string `json:"event_id"`
	EventKind string `json:"event_kind"`
}

// Payload implements Event interface.
func (e MemberCheckedInEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"member_id":  e.MemberID,
		"event_id":   e.EventID,
		"event_kind": e.EventKind,
	}
}

// NewMemberCheckedInEvent creates a new MemberCheckedInEvent.
func NewMemberCheckedInEvent(recordID, memberID, eventID, eventKind string) MemberCheckedInEvent {
	return MemberCheckedInEvent{
		BaseEvent: NewBaseEvent(EventMemberCheckedIn, recordID),
		MemberID:  memberID,
		EventID:   eventID,
		EventKind: eventKind,
	}
}

// MemberCheckedOutEvent is emitted when a record is verified at checkout.
type MemberCheckedOutEvent struct {
	BaseEvent
	MemberID        string `json:"member_id"`
	EventID         string `json:"event_id"`
	DurationMinutes int    `json:"duration_minutes"`
	PointsA         int    `json:"points_a"`
	PointsB         int    `json:"points_b"`
	BonusApplied    bool   `json:"bonus_applied"`
}

// Payload implements Event interface.
func (e MemberCheckedOutEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"member_id":        e.MemberID,
		"event_id":         e.EventID,
		"duration_minutes": e.DurationMinutes,
		"points_a":         e.PointsA,
		"points_b":         e.PointsB,
		"bonus_applied":    e.BonusApplied,
	}
}

// NewMemberCheckedOutEvent creates a new MemberCheckedOutEvent.
func NewMemberCheckedOutEvent(recordID, memberID, eventID string, durationMinutes, pointsA, pointsB int, bonusApplied bool) MemberCheckedOutEvent {
	return MemberCheckedOutEvent{
		BaseEvent:       NewBaseEvent(EventMemberCheckedOut, recordID),
		MemberID:        memberID,
		EventID:         eventID,
		DurationMinutes: durationMinutes,
		PointsA:         pointsA,
		PointsB:         pointsB,
		BonusApplied:    bonusApplied,
	}
}

// CheckoutMissedEvent is emitted when the maintenance sweep closes a stale record.
type CheckoutMissedEvent struct {
	BaseEvent
	MemberID string    `json:"member_id"`
	EventID  string    `json:"event_id"`
	EventEnd time.Time `json:"event_end"`
}

// Payload implements Event interface.
func (e CheckoutMissedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"member_id": e.MemberID,
		"event_id":  e.EventID,
		"event_end": e.EventEnd,
	}
}

// NewCheckoutMissedEvent creates a new CheckoutMissedEvent.
func NewCheckoutMissedEvent(recordID, memberID, eventID string, eventEnd time.Time) CheckoutMissedEvent {
	return CheckoutMissedEvent{
		BaseEvent: NewBaseEvent(EventCheckoutMissed, recordID),
		MemberID:  memberID,
		EventID:   eventID,
		EventEnd:  eventEnd,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Reminder Events
// ═══════════════════════════════════════════════════════════════════════════

// RemindersScheduledEvent is emitted after reminders are planned and persisted.
type RemindersScheduledEvent struct {
	BaseEvent
	MemberID string `json:"member_id"`
	Count    int    `json:"count"`
}

// Payload implements Event interface.
func (e RemindersScheduledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"member_id": e.MemberID,
		"count":     e.Count,
	}
}

// NewRemindersScheduledEvent creates a new RemindersScheduledEvent.
func NewRemindersScheduledEvent(recordID, memberID string, count int) RemindersScheduledEvent {
	return RemindersScheduledEvent{
		BaseEvent: NewBaseEvent(EventRemindersScheduled, recordID),
		MemberID:  memberID,
		Count:     count,
	}
}

// RemindersCancelledEvent is emitted after a record's reminder set is retracted.
type RemindersCancelledEvent struct {
	BaseEvent
	Count int `json:"count"`
}

// Payload implements Event interface.
func (e RemindersCancelledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"count": e.Count,
	}
}

// NewRemindersCancelledEvent creates a new RemindersCancelledEvent.
func NewRemindersCancelledEvent(recordID string, count int) RemindersCancelledEvent {
	return RemindersCancelledEvent{
		BaseEvent: NewBaseEvent(EventRemindersCancelled, recordID),
		Count:     count,
	}
}

// ReminderFiredEvent is emitted when the dispatch layer fires a timer.
// This is the sole asynchronous re-entry point into the core.
type ReminderFiredEvent struct {
	BaseEvent
	ReminderID string `json:"reminder_id"`
	MemberID   string `json:"member_id"`
	Kind       string `json:"kind"`
}

// Payload implements Event interface.
func (e ReminderFiredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"reminder_id": e.ReminderID,
		"member_id":   e.MemberID,
		"kind":        e.Kind,
	}
}

// NewReminderFiredEvent creates a new ReminderFiredEvent.
func NewReminderFiredEvent(recordID, reminderID, memberID, kind string) ReminderFiredEvent {
	return ReminderFiredEvent{
		BaseEvent:  NewBaseEvent(EventReminderFired, recordID),
		ReminderID: reminderID,
		MemberID:   memberID,
		Kind:       kind,
	}
}

// SweepCompletedEvent is emitted after a missed-checkout sweep finishes.
type SweepCompletedEvent struct {
	BaseEvent
	RecordsClosed int           `json:"records_closed"`
	Cutoff        time.Duration `json:"cutoff"`
}

// Payload implements Event interface.
func (e SweepCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"records_closed": e.RecordsClosed,
		"cutoff":         e.Cutoff.String(),
	}
}

// NewSweepCompletedEvent creates a new SweepCompletedEvent.
func NewSweepCompletedEvent(recordsClosed int, cutoff time.Duration) SweepCompletedEvent {
	return SweepCompletedEvent{
		BaseEvent:     NewBaseEvent(EventSweepCompleted, "sweep"),
		RecordsClosed: recordsClosed,
		Cutoff:        cutoff,
	}
}
