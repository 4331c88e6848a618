// Package shared contains common domain types, errors, and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors - never retried, surfaced to the caller immediately.
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrNegativeValue = errors.New("value cannot be negative")

	// State conflicts - surfaced, not retried; the caller must re-query state.
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrStateConflict    = errors.New("state conflict")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrNotOwner         = errors.New("caller does not own the entity")
	ErrExpired          = errors.New("expired")

	// Scheduling failures - reported, never escalate past the reminder subsystem.
	ErrSchedulingFailed = errors.New("scheduling failed")

	// Persistence failures - fatal to the enclosing operation, which is
	// considered not applied; the whole operation may be retried.
	ErrPersistence        = errors.New("persistence failure")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "attendance", "reminder"
	Op      string // Operation that failed, e.g., "CheckIn", "Schedule"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Attendance domain errors
var (
	ErrRecordNotFound     = NewDomainError("attendance", "Find", ErrNotFound, "attendance record not found")
	ErrDuplicateCheckIn   = NewDomainError("attendance", "CheckIn", ErrStateConflict, "member already has an open check-in")
	ErrUnknownEventType   = NewDomainError("attendance", "Validate", ErrValidation, "unknown event type")
	ErrAlreadyCheckedOut  = NewDomainError("attendance", "CheckOut", ErrStateTransition, "record is not open")
	ErrRecordNotOwned     = NewDomainError("attendance", "CheckOut", ErrNotOwner, "record belongs to another member")
	ErrCheckoutBeforeOpen = NewDomainError("attendance", "CheckOut", ErrInvalidInput, "checkout cannot precede check-in")
)

// Reminder domain errors
var (
	ErrReminderNotFound    = NewDomainError("reminder", "Find", ErrNotFound, "reminder not found")
	ErrRemindersExist      = NewDomainError("reminder", "Schedule", ErrAlreadyExists, "reminders already scheduled for record")
	ErrDispatchUnavailable = NewDomainError("reminder", "Dispatch", ErrSchedulingFailed, "timer dispatch rejected registration")
	ErrReminderFinalized   = NewDomainError("reminder", "Transition", ErrStateTransition, "reminder already delivered or cancelled")
)

// Event catalog errors
var (
	ErrEventNotFound = NewDomainError("catalog", "GetEvent", ErrNotFound, "event not found in catalog")
)
