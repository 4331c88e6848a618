package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/internal/application/reminders"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SWEEP MISSED CHECKOUTS COMMAND
// Maintenance operation: closes records left open past their event's end,
// awarding zero points and retracting their reminders. Guarantees no record
// stays open indefinitely and no reminder fires forever.
// ══════════════════════════════════════════════════════════════════════════════

// SweepMissedCommand contains the operator-supplied sweep policy.
type SweepMissedCommand struct {
	// Cutoff is how far past the event end an open record may linger before
	// it is marked missed.
	Cutoff time.Duration
}

// Validate validates the command.
func (c SweepMissedCommand) Validate() error {
	if c.Cutoff < 0 {
		return shared.NewDomainError("attendance", "Sweep", shared.ErrNegativeValue, "cutoff cannot be negative")
	}
	return nil
}

// SweepMissedHandler handles SweepMissedCommand.
type SweepMissedHandler struct {
	records    attendance.Repository
	catalog    attendance.EventCatalog
	scheduler  *reminders.Scheduler
	guard      OpenCheckInGuard
	serializer *RecordSerializer
	publisher  shared.EventPublisher
	telemetry  attendance.Telemetry
	logger     *slog.Logger

	clock func() time.Time
}

// NewSweepMissedHandler creates a SweepMissedHandler.
func NewSweepMissedHandler(
	records attendance.Repository,
	catalog attendance.EventCatalog,
	scheduler *reminders.Scheduler,
	guard OpenCheckInGuard,
	serializer *RecordSerializer,
	publisher shared.EventPublisher,
	telemetry attendance.Telemetry,
	logger *slog.Logger,
) *SweepMissedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepMissedHandler{
		records:    records,
		catalog:    catalog,
		scheduler:  scheduler,
		guard:      guard,
		serializer: serializer,
		publisher:  publisher,
		telemetry:  telemetry,
		logger:     logger,
		clock:      time.Now,
	}
}

// WithClock overrides the handler clock, for tests.
func (h *SweepMissedHandler) WithClock(clock func() time.Time) *SweepMissedHandler {
	h.clock = clock
	return h
}

// Handle sweeps open records whose event ended more than Cutoff ago.
// Returns the number of records transitioned to missed_checkout. Per-record
// failures are logged and skipped so one bad record cannot stall the sweep.
func (h *SweepMissedHandler) Handle(ctx context.Context, cmd SweepMissedCommand) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	open, err := h.records.ListOpenRecords(ctx)
	if err != nil {
		return 0, shared.WrapError("attendance", "Sweep", shared.ErrPersistence, "failed to list open records", err)
	}

	now := h.clock()
	closed := 0
	for _, record := range open {
		meta, err := h.catalog.GetEvent(ctx, record.EventID)
		if err != nil {
			h.logger.Warn("sweep: event metadata unavailable",
				"record_id", record.ID.String(),
				"event_id", record.EventID.String(),
				"error", err,
			)
			continue
		}
		if now.Sub(meta.EndsAt) <= cmd.Cutoff {
			continue
		}

		if err := h.closeMissed(ctx, record, meta.EndsAt, now); err != nil {
			h.logger.Error("sweep: failed to close record",
				"record_id", record.ID.String(),
				"error", err,
			)
			continue
		}
		closed++
	}

	if h.publisher != nil {
		_ = h.publisher.Publish(shared.NewSweepCompletedEvent(closed, cmd.Cutoff))
	}
	if h.telemetry != nil {
		h.telemetry.Emit("missed_checkout_sweep", map[string]interface{}{
			"records_closed": closed,
			"cutoff":         cmd.Cutoff.String(),
		})
	}

	return closed, nil
}

func (h *SweepMissedHandler) closeMissed(ctx context.Context, record *attendance.Record, eventEnd, now time.Time) error {
	unlock := h.serializer.Lock(record.ID)
	defer unlock()

	// Re-load under the lock: a checkout may have won the race.
	current, err := h.records.GetByID(ctx, record.ID)
	if err != nil {
		return err
	}
	if current == nil || !current.IsOpen() {
		return nil
	}

	if err := current.MarkMissed(now); err != nil {
		return err
	}
	if err := h.records.Save(ctx, current); err != nil {
		return err
	}

	if h.guard != nil {
		if err := h.guard.Release(ctx, current.MemberID); err != nil {
			h.logger.Warn("sweep: failed to release check-in guard",
				"member_id", current.MemberID.String(),
				"error", err,
			)
		}
	}

	if err := h.scheduler.Cancel(ctx, current.ID); err != nil {
		h.logger.Warn("sweep: reminder retraction failed",
			"record_id", current.ID.String(),
			"error", err,
		)
	}

	if h.publisher != nil {
		_ = h.publisher.Publish(shared.NewCheckoutMissedEvent(
			current.ID.String(),
			current.MemberID.String(),
			current.EventID.String(),
			eventEnd,
		))
	}
	return nil
}
