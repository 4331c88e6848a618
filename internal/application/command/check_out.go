package command

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/internal/application/reminders"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK OUT COMMAND
// Closes an open attendance record: computes duration, points, and degree
// credits, then retracts the record's reminders.
// ══════════════════════════════════════════════════════════════════════════════

// CheckOutCommand contains the data to close an attendance record.
type CheckOutCommand struct {
	RecordID      string
	MemberID      string // caller identity; must own the record
	Reflection    string
	CorrelationID string
}

// Validate validates the command.
func (c CheckOutCommand) Validate() error {
	if c.RecordID == "" {
		return shared.NewDomainError("attendance", "CheckOut", shared.ErrInvalidInput, "record_id is required")
	}
	if c.MemberID == "" {
		return shared.NewDomainError("attendance", "CheckOut", shared.ErrInvalidInput, "member_id is required")
	}
	return nil
}

// RecordSerializer enforces the single-writer-per-record discipline for the
// load-mutate-save cycle on attendance records. Operations on different
// records proceed fully concurrently.
type RecordSerializer struct {
	mu    sync.Mutex
	locks map[attendance.RecordID]*recordEntry
}

type recordEntry struct {
	mu   sync.Mutex
	refs int
}

// NewRecordSerializer creates a RecordSerializer.
func NewRecordSerializer() *RecordSerializer {
	return &RecordSerializer{locks: make(map[attendance.RecordID]*recordEntry)}
}

// Lock acquires the record's lock and returns the matching unlock.
func (s *RecordSerializer) Lock(id attendance.RecordID) func() {
	s.mu.Lock()
	e, ok := s.locks[id]
	if !ok {
		e = &recordEntry{}
		s.locks[id] = e
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		s.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// CheckOutHandler handles CheckOutCommand.
type CheckOutHandler struct {
	records    attendance.Repository
	scheduler  *reminders.Scheduler
	guard      OpenCheckInGuard // nil when absent
	serializer *RecordSerializer
	table      *attendance.PointsTable
	progress   attendance.DegreeProgressUpdater
	publisher  shared.EventPublisher
	telemetry  attendance.Telemetry
	logger     *slog.Logger

	clock func() time.Time
}

// NewCheckOutHandler creates a CheckOutHandler.
func NewCheckOutHandler(
	records attendance.Repository,
	scheduler *reminders.Scheduler,
	guard OpenCheckInGuard,
	serializer *RecordSerializer,
	table *attendance.PointsTable,
	progress attendance.DegreeProgressUpdater,
	publisher shared.EventPublisher,
	telemetry attendance.Telemetry,
	logger *slog.Logger,
) *CheckOutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckOutHandler{
		records:    records,
		scheduler:  scheduler,
		guard:      guard,
		serializer: serializer,
		table:      table,
		progress:   progress,
		publisher:  publisher,
		telemetry:  telemetry,
		logger:     logger,
		clock:      time.Now,
	}
}

// WithClock overrides the handler clock, for tests.
func (h *CheckOutHandler) WithClock(clock func() time.Time) *CheckOutHandler {
	h.clock = clock
	return h
}

// Handle closes the record. A failed checkout leaves the record in its prior
// state. Reminder retraction failures are reported but do not undo the
// checkout: attendance correctness never depends on reminder delivery.
func (h *CheckOutHandler) Handle(ctx context.Context, cmd CheckOutCommand) (*attendance.Record, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	recordID := attendance.RecordID(cmd.RecordID)
	unlock := h.serializer.Lock(recordID)
	defer unlock()

	record, err := h.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, shared.WrapError("attendance", "CheckOut", shared.ErrPersistence, "failed to load record", err)
	}
	if record == nil {
		return nil, shared.ErrRecordNotFound
	}
	if record.MemberID != attendance.MemberID(cmd.MemberID) {
		return nil, shared.ErrRecordNotOwned
	}
	if !record.IsOpen() {
		return nil, shared.ErrAlreadyCheckedOut
	}

	now := h.clock()
	if err := record.CheckOut(now, h.table, cmd.Reflection); err != nil {
		return nil, shared.WrapError("attendance", "CheckOut", shared.ErrStateTransition, "checkout rejected", err)
	}

	if err := h.records.Save(ctx, record); err != nil {
		return nil, shared.WrapError("attendance", "CheckOut", shared.ErrPersistence, "failed to persist record", err)
	}

	h.releaseGuard(ctx, record.MemberID)

	if err := h.scheduler.Cancel(ctx, record.ID); err != nil {
		h.logger.Warn("reminder retraction failed", "record_id", record.ID.String(), "error", err)
	}

	if h.progress != nil && len(record.DegreeCredits) > 0 {
		if err := h.progress.ApplyCredits(ctx, record.MemberID, record.DegreeCredits); err != nil {
			h.logger.Warn("degree progress update failed", "member_id", record.MemberID.String(), "error", err)
		}
	}

	if h.publisher != nil {
		_ = h.publisher.Publish(shared.NewMemberCheckedOutEvent(
			record.ID.String(),
			record.MemberID.String(),
			record.EventID.String(),
			record.DurationMinutes,
			record.PointsA,
			record.PointsB,
			record.BonusApplied(),
		))
	}
	if h.telemetry != nil {
		h.telemetry.Emit("member_checked_out", map[string]interface{}{
			"member_id":        record.MemberID.String(),
			"event_id":         record.EventID.String(),
			"duration_minutes": record.DurationMinutes,
			"points_a":         record.PointsA,
			"points_b":         record.PointsB,
		})
	}

	return record, nil
}

func (h *CheckOutHandler) releaseGuard(ctx context.Context, memberID attendance.MemberID) {
	if h.guard == nil {
		return
	}
	if err := h.guard.Release(ctx, memberID); err != nil {
		h.logger.Warn("failed to release check-in guard", "member_id", memberID.String(), "error", err)
	}
}
