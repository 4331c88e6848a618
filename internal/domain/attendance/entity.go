// Package attendance contains the domain model for the attendance lifecycle:
// check-in/check-out records, point awards, and degree-credit computation.
// This is a pure domain layer with zero external dependencies.
package attendance

import (
	"errors"
	"math"
	"time"
)

// Domain errors for the attendance package.
var (
	ErrInvalidMemberID   = errors.New("attendance: invalid member ID")
	ErrInvalidEventID    = errors.New("attendance: invalid event ID")
	ErrInvalidRecordID   = errors.New("attendance: invalid record ID")
	ErrRecordNotOpen     = errors.New("attendance: record is not open")
	ErrUnknownEventType  = errors.New("attendance: unknown event type")
	ErrUnknownMethod     = errors.New("attendance: unknown verification method")
	ErrFutureTimestamp   = errors.New("attendance: timestamp cannot be in the future")
	ErrNegativeDuration  = errors.New("attendance: duration cannot be negative")
)

// RecordID represents a unique identifier for an attendance record.
type RecordID string

// IsValid checks if the record ID is valid.
func (id RecordID) IsValid() bool {
	return id != ""
}

// String returns the string representation of RecordID.
func (id RecordID) String() string {
	return string(id)
}

// MemberID represents a unique identifier for a program member.
// Members live in an external system; this core never validates existence.
type MemberID string

// IsValid checks if the member ID is valid.
func (id MemberID) IsValid() bool {
	return id != ""
}

// String returns the string representation of MemberID.
func (id MemberID) String() string {
	return string(id)
}

// EventID represents a unique identifier for a calendar event.
type EventID string

// IsValid checks if the event ID is valid.
func (id EventID) IsValid() bool {
	return id != ""
}

// String returns the string representation of EventID.
func (id EventID) String() string {
	return string(id)
}

// EventType is the closed set of event categories that select a scoring row.
type EventType string

const (
	EventTypeMeeting          EventType = "meeting"
	EventTypeCompetition      EventType = "competition"
	EventTypeConference       EventType = "conference"
	EventTypeShow             EventType = "show"
	EventTypeCommunityService EventType = "community_service"
	EventTypeInternship       EventType = "internship"
	EventTypeWorkshop         EventType = "workshop"
	EventTypeFieldTrip        EventType = "field_trip"
)

// IsValid checks that the event type belongs to the closed set.
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeMeeting, EventTypeCompetition, EventTypeConference,
		EventTypeShow, EventTypeCommunityService, EventTypeInternship,
		EventTypeWorkshop, EventTypeFieldTrip:
		return true
	default:
		return false
	}
}

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// VerificationMethod records how attendance was verified at check-in.
// Informational only; it never affects point math.
type VerificationMethod string

const (
	VerificationCode         VerificationMethod = "code"
	VerificationLocation     VerificationMethod = "location"
	VerificationSelfReported VerificationMethod = "self_reported"
	VerificationAdvisor      VerificationMethod = "advisor"
)

// IsValid checks that the verification method is recognized.
func (m VerificationMethod) IsValid() bool {
	switch m {
	case VerificationCode, VerificationLocation, VerificationSelfReported, VerificationAdvisor:
		return true
	default:
		return false
	}
}

// Status represents the lifecycle state of an attendance record.
type Status string

const (
	// StatusCheckedIn is the open state between check-in and checkout.
	StatusCheckedIn Status = "checked_in"

	// StatusVerified is the only terminal success state.
	StatusVerified Status = "verified"

	// StatusMissedCheckout is set by the maintenance sweep; zero points.
	StatusMissedCheckout Status = "missed_checkout"

	// StatusIncomplete marks records invalidated outside the normal flow.
	StatusIncomplete Status = "incomplete"
)

// DegreeCredit is one partial contribution toward a tiered advancement track.
// CompletionPercent is a fixed per-event-type constant; it is not scaled by
// attendance duration or frequency.
type DegreeCredit struct {
	Tier              DegreeTier
	Category          CreditCategory
	PointsEarned      int
	CompletionPercent float64
}

// DegreeTier identifies one level of the advancement track.
type DegreeTier string

const (
	TierDiscovery DegreeTier = "discovery"
	TierGreenhand DegreeTier = "greenhand"
	TierChapter   DegreeTier = "chapter"
	TierState     DegreeTier = "state"
	TierAmerican  DegreeTier = "american"
)

// CreditCategory identifies the requirement a credit counts toward.
type CreditCategory string

const (
	CategoryActivities       CreditCategory = "activities_participated"
	CategoryCommunityService CreditCategory = "community_service_hours"
	CategoryLeadership       CreditCategory = "leadership_events"
	CategorySupervisedHours  CreditCategory = "supervised_experience_hours"
)

// FullAttendanceThresholdMinutes is the fixed policy constant above which the
// full-attendance bonus multiplier applies.
const FullAttendanceThresholdMinutes = 90

// FullAttendanceBonus is the multiplier applied at or above the threshold.
const FullAttendanceBonus = 1.2

// Record is one attendance record per check-in attempt.
type Record struct {
	ID       RecordID
	MemberID MemberID
	EventID  EventID

	EventType          EventType
	VerificationMethod VerificationMethod
	Location           string

	CheckedInAt  time.Time
	CheckedOutAt *time.Time // nil until checkout
	Status       Status

	// Derived at checkout, zero until then.
	DurationMinutes int
	PointsA         int // AET scale
	PointsB         int // SAE scale
	DegreeCredits   []DegreeCredit

	Reflection string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord creates a new open attendance record.
func NewRecord(id RecordID, memberID MemberID, eventID EventID, eventType EventType, method VerificationMethod, location string, now time.Time) (*Record, error) {
	if !id.IsValid() {
		return nil, ErrInvalidRecordID
	}
	if !memberID.IsValid() {
		return nil, ErrInvalidMemberID
	}
	if !eventID.IsValid() {
		return nil, ErrInvalidEventID
	}
	if !eventType.IsValid() {
		return nil, ErrUnknownEventType
	}
	if !method.IsValid() {
		return nil, ErrUnknownMethod
	}

	return &Record{
		ID:                 id,
		MemberID:           memberID,
		EventID:            eventID,
		EventType:          eventType,
		VerificationMethod: method,
		Location:           location,
		CheckedInAt:        now,
		Status:             StatusCheckedIn,
		DegreeCredits:      nil,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// IsOpen returns true while the record is awaiting checkout.
func (r *Record) IsOpen() bool {
	return r.Status == StatusCheckedIn
}

// CheckOut closes the record, computing duration, points, and degree credits
// from the given table. Duration clamps to zero under clock skew rather than
// going negative. Only an open record may be checked out.
func (r *Record) CheckOut(now time.Time, table *PointsTable, reflection string) error {
	if r.Status != StatusCheckedIn {
		return ErrRecordNotOpen
	}

	minutes := int(math.Round(now.Sub(r.CheckedInAt).Minutes()))
	if minutes < 0 {
		minutes = 0
	}

	baseA, baseB, err := table.Lookup(r.EventType)
	if err != nil {
		return err
	}

	bonus := 1.0
	if minutes >= FullAttendanceThresholdMinutes {
		bonus = FullAttendanceBonus
	}

	checkedOut := now
	r.CheckedOutAt = &checkedOut
	r.DurationMinutes = minutes
	r.PointsA = roundHalfAwayFromZero(float64(baseA) * bonus)
	r.PointsB = roundHalfAwayFromZero(float64(baseB) * bonus)
	r.DegreeCredits = table.CreditsFor(r.EventType)
	r.Reflection = reflection
	r.Status = StatusVerified
	r.UpdatedAt = now
	return nil
}

// BonusApplied reports whether the closed record earned the duration bonus.
func (r *Record) BonusApplied() bool {
	return r.Status == StatusVerified && r.DurationMinutes >= FullAttendanceThresholdMinutes
}

// MarkMissed transitions an open record to missed_checkout with zero points.
func (r *Record) MarkMissed(now time.Time) error {
	if r.Status != StatusCheckedIn {
		return ErrRecordNotOpen
	}

	r.Status = StatusMissedCheckout
	r.PointsA = 0
	r.PointsB = 0
	r.DurationMinutes = 0
	r.DegreeCredits = nil
	r.UpdatedAt = now
	return nil
}

// roundHalfAwayFromZero rounds to the nearest integer with ties away from zero.
func roundHalfAwayFromZero(v float64) int {
	return int(math.Round(v))
}
