// Package attendance contains the domain model for the attendance lifecycle.
package attendance

import (
	"context"
	"time"
)

// HistoryFilter narrows history queries.
// Zero values mean "no filter" for each field.
type HistoryFilter struct {
	// EventType restricts results to one scoring row.
	EventType EventType

	// Status restricts results to one lifecycle state.
	Status Status

	// From/To bound CheckedInAt.
	From time.Time
	To   time.Time

	// Limit caps the number of records returned (0 = no cap).
	Limit int
}

// Repository defines the interface for attendance record persistence.
// This interface is implemented by the infrastructure layer.
// The domain layer has no knowledge of the actual storage mechanism.
// Save and load are atomic per record but not transactional across records.
type Repository interface {
	// Save persists a record (create or update).
	Save(ctx context.Context, record *Record) error

	// GetByID returns a record by ID.
	GetByID(ctx context.Context, id RecordID) (*Record, error)

	// GetOpenRecord returns the member's open record, or nil when none exists.
	GetOpenRecord(ctx context.Context, memberID MemberID) (*Record, error)

	// GetHistory returns a member's records matching the filter,
	// ordered by CheckedInAt descending.
	GetHistory(ctx context.Context, memberID MemberID, filter HistoryFilter) ([]*Record, error)

	// ListOpenRecords returns every open record across all members.
	// Used by the missed-checkout sweep.
	ListOpenRecords(ctx context.Context) ([]*Record, error)
}

// EventMetadata is what the calendar catalog knows about one event.
type EventMetadata struct {
	ID       EventID
	Title    string
	Type     EventType
	StartsAt time.Time
	EndsAt   time.Time
	Location string
}

// EventCatalog supplies event metadata from the external calendar system.
type EventCatalog interface {
	// GetEvent returns metadata for an event.
	GetEvent(ctx context.Context, id EventID) (*EventMetadata, error)

	// ListUpcoming returns events starting within the given window,
	// ordered by start time.
	ListUpcoming(ctx context.Context, from time.Time, within time.Duration) ([]*EventMetadata, error)
}

// Telemetry emits fire-and-forget analytics events. Implementations must
// never block and must never return an error into core operations.
type Telemetry interface {
	Emit(name string, props map[string]interface{})
}

// DegreeProgressUpdater is the capability interface for the external
// degree-progress module. When the collaborator is unavailable a no-op
// implementation is injected; callers never probe for method existence.
type DegreeProgressUpdater interface {
	ApplyCredits(ctx context.Context, memberID MemberID, credits []DegreeCredit) error
}

// IDGenerator produces unique identifiers for new records.
type IDGenerator interface {
	GenerateID() string
}
