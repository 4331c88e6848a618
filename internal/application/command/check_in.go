// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/reminder"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
	"github.com/chapterhub/chapter-attendance-hub/internal/application/reminders"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK IN COMMAND
// Opens an attendance record and schedules checkout reminders for it.
// ══════════════════════════════════════════════════════════════════════════════

// OpenCheckInGuard is the optional compare-and-swap primitive guarding the
// one-open-record-per-member invariant against concurrent check-ins. When the
// backing store offers no such primitive a nil guard is injected and the
// invariant degrades to check-then-write (last write wins).
type OpenCheckInGuard interface {
	// TryAcquire claims the member's open-check-in slot. Returns false when
	// another check-in already holds it.
	TryAcquire(ctx context.Context, memberID attendance.MemberID, recordID attendance.RecordID, ttl time.Duration) (bool, error)

	// Release frees the member's slot.
	Release(ctx context.Context, memberID attendance.MemberID) error
}

// CheckInCommand contains the data to open an attendance record.
// MemberID is always explicit; it is never inferred from ambient session state.
type CheckInCommand struct {
	MemberID           string
	EventID            string
	EventType          string
	VerificationMethod string
	Location           string
	CorrelationID      string
}

// Validate validates the command.
func (c CheckInCommand) Validate() error {
	if c.MemberID == "" {
		return shared.NewDomainError("attendance", "CheckIn", shared.ErrInvalidInput, "member_id is required")
	}
	if c.EventID == "" {
		return shared.NewDomainError("attendance", "CheckIn", shared.ErrInvalidInput, "event_id is required")
	}
	if !attendance.EventType(c.EventType).IsValid() {
		return shared.ErrUnknownEventType
	}
	if !attendance.VerificationMethod(c.VerificationMethod).IsValid() {
		return shared.NewDomainError("attendance", "CheckIn", shared.ErrValidation, "unknown verification method")
	}
	return nil
}

// CheckInHandler handles CheckInCommand.
type CheckInHandler struct {
	records   attendance.Repository
	catalog   attendance.EventCatalog
	scheduler *reminders.Scheduler
	guard     OpenCheckInGuard // nil when the store has no CAS primitive
	idgen     attendance.IDGenerator
	publisher shared.EventPublisher
	telemetry attendance.Telemetry
	logger    *slog.Logger

	reminderCfg reminder.Config
	clock       func() time.Time
}

// guardTTL bounds how long an open-check-in claim can outlive its record
// before the sweep reclaims it.
const guardTTL = 12 * time.Hour

// NewCheckInHandler creates a CheckInHandler.
func NewCheckInHandler(
	records attendance.Repository,
	catalog attendance.EventCatalog,
	scheduler *reminders.Scheduler,
	guard OpenCheckInGuard,
	idgen attendance.IDGenerator,
	publisher shared.EventPublisher,
	telemetry attendance.Telemetry,
	logger *slog.Logger,
	reminderCfg reminder.Config,
) *CheckInHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckInHandler{
		records:     records,
		catalog:     catalog,
		scheduler:   scheduler,
		guard:       guard,
		idgen:       idgen,
		publisher:   publisher,
		telemetry:   telemetry,
		logger:      logger,
		reminderCfg: reminderCfg,
		clock:       time.Now,
	}
}

// WithClock overrides the handler clock, for tests.
func (h *CheckInHandler) WithClock(clock func() time.Time) *CheckInHandler {
	h.clock = clock
	return h
}

// Handle opens a new attendance record. A failed check-in leaves no partial
// record behind. Reminder scheduling failures are reported but never block
// the check-in itself.
func (h *CheckInHandler) Handle(ctx context.Context, cmd CheckInCommand) (*attendance.Record, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	memberID := attendance.MemberID(cmd.MemberID)
	now := h.clock()

	// One open record per member. The store check is authoritative; the CAS
	// guard (when available) closes the race between concurrent check-ins.
	open, err := h.records.GetOpenRecord(ctx, memberID)
	if err != nil {
		return nil, shared.WrapError("attendance", "CheckIn", shared.ErrPersistence, "failed to query open record", err)
	}
	if open != nil {
		return nil, shared.ErrDuplicateCheckIn
	}

	recordID := attendance.RecordID(h.idgen.GenerateID())

	if h.guard != nil {
		acquired, err := h.guard.TryAcquire(ctx, memberID, recordID, guardTTL)
		if err != nil {
			// Guard unavailable: fall back to the store check above.
			h.logger.Warn("check-in guard unavailable", "member_id", memberID.String(), "error", err)
		} else if !acquired {
			return nil, shared.ErrDuplicateCheckIn
		}
	}

	record, err := attendance.NewRecord(
		recordID,
		memberID,
		attendance.EventID(cmd.EventID),
		attendance.EventType(cmd.EventType),
		attendance.VerificationMethod(cmd.VerificationMethod),
		cmd.Location,
		now,
	)
	if err != nil {
		h.releaseGuard(ctx, memberID)
		if errors.Is(err, attendance.ErrUnknownEventType) {
			return nil, shared.ErrUnknownEventType
		}
		return nil, shared.WrapError("attendance", "CheckIn", shared.ErrValidation, "invalid check-in input", err)
	}

	if err := h.records.Save(ctx, record); err != nil {
		h.releaseGuard(ctx, memberID)
		return nil, shared.WrapError("attendance", "CheckIn", shared.ErrPersistence, "failed to persist record", err)
	}

	h.scheduleReminders(ctx, record)

	if h.publisher != nil {
		evt := shared.NewMemberCheckedInEvent(record.ID.String(), memberID.String(), cmd.EventID, cmd.EventType)
		evt.BaseEvent = evt.WithCorrelationID(cmd.CorrelationID)
		_ = h.publisher.Publish(evt)
	}
	if h.telemetry != nil {
		h.telemetry.Emit("member_checked_in", map[string]interface{}{
			"member_id":  memberID.String(),
			"event_id":   cmd.EventID,
			"event_type": cmd.EventType,
			"method":     cmd.VerificationMethod,
		})
	}

	return record, nil
}

// scheduleReminders looks up the event end time and hands the record to the
// reminder scheduler. Every failure on this path is non-fatal.
func (h *CheckInHandler) scheduleReminders(ctx context.Context, record *attendance.Record) {
	meta, err := h.catalog.GetEvent(ctx, record.EventID)
	if err != nil {
		h.logger.Warn("event metadata unavailable, skipping reminders",
			"record_id", record.ID.String(),
			"event_id", record.EventID.String(),
			"error", err,
		)
		return
	}

	if _, err := h.scheduler.Schedule(ctx, record, meta.EndsAt, h.reminderCfg); err != nil {
		h.logger.Warn("reminder scheduling failed",
			"record_id", record.ID.String(),
			"error", err,
		)
		if h.telemetry != nil {
			h.telemetry.Emit("reminder_scheduling_failed", map[string]interface{}{
				"record_id": record.ID.String(),
			})
		}
	}
}

func (h *CheckInHandler) releaseGuard(ctx context.Context, memberID attendance.MemberID) {
	if h.guard == nil {
		return
	}
	if err := h.guard.Release(ctx, memberID); err != nil {
		h.logger.Warn("failed to release check-in guard", "member_id", memberID.String(), "error", err)
	}
}
