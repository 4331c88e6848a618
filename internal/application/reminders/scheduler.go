// Package reminders implements the reminder scheduling service: it owns the
// set of pending timed notifications, persists them, registers best-effort
// timers with the dispatch layer, and reconciles state after restarts.
package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/reminder"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

// Scheduler owns pending reminders for open attendance records.
//
// The durable store is the source of truth for which reminders are believed
// outstanding; the dispatch layer is a best-effort executor. A dispatch
// failure is reported and never corrupts the stored reminder set, and never
// fails the enclosing check-in or check-out.
//
// All operations on the same attendance record are serialized through a
// per-record lock; operations on different records run fully concurrently.
type Scheduler struct {
	reminders reminder.Repository
	records   attendance.Repository
	dispatch  reminder.Dispatch
	sender    reminder.Sender
	idgen     attendance.IDGenerator
	publisher shared.EventPublisher
	telemetry attendance.Telemetry
	logger    *slog.Logger

	clock func() time.Time

	locks keyedMutex

	// handles tracks live timer registrations per record so cancellation can
	// reach the dispatch layer. Lost handles (e.g. after restart) are
	// harmless: the fire handler re-checks the store before acting.
	mu      sync.Mutex
	handles map[attendance.RecordID]map[reminder.ReminderID]reminder.TimerHandle
}

// Config contains constructor dependencies for the Scheduler.
type Config struct {
	Reminders reminder.Repository
	Records   attendance.Repository
	Dispatch  reminder.Dispatch
	Sender    reminder.Sender
	IDGen     attendance.IDGenerator
	Publisher shared.EventPublisher
	Telemetry attendance.Telemetry
	Logger    *slog.Logger

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// NewScheduler creates a Scheduler.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Scheduler{
		reminders: cfg.Reminders,
		records:   cfg.Records,
		dispatch:  cfg.Dispatch,
		sender:    cfg.Sender,
		idgen:     cfg.IDGen,
		publisher: cfg.Publisher,
		telemetry: cfg.Telemetry,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		handles:   make(map[attendance.RecordID]map[reminder.ReminderID]reminder.TimerHandle),
	}
}

// Schedule plans and persists the reminder set for an open record whose event
// ends at eventEnd. Offsets already in the past are skipped. Calling Schedule
// again for the same record replaces the previous set instead of doubling it.
func (s *Scheduler) Schedule(ctx context.Context, record *attendance.Record, eventEnd time.Time, cfg reminder.Config) ([]*reminder.ScheduledReminder, error) {
	unlock := s.locks.lock(record.ID)
	defer unlock()

	now := s.clock()

	// Re-scheduling replaces any pre-existing set.
	if err := s.cancelLocked(ctx, record.ID); err != nil {
		return nil, err
	}

	planned := reminder.Plan(cfg, eventEnd, now)
	if len(planned) == 0 {
		return nil, nil
	}

	batch := make([]*reminder.ScheduledReminder, 0, len(planned))
	for _, p := range planned {
		r, err := reminder.NewScheduledReminder(
			reminder.ReminderID(s.idgen.GenerateID()),
			record.ID,
			record.MemberID,
			p.FireAt,
			p.Kind,
			now,
		)
		if err != nil {
			return nil, shared.WrapError("reminder", "Schedule", shared.ErrInvalidEntity, "failed to build reminder", err)
		}
		batch = append(batch, r)
	}

	// Persist first: the store is the source of truth.
	if err := s.reminders.SaveAll(ctx, batch); err != nil {
		return nil, shared.WrapError("reminder", "Schedule", shared.ErrPersistence, "failed to persist reminders", err)
	}

	// Timer registration is best-effort. Failures are reported, not returned.
	for _, r := range batch {
		s.registerTimer(ctx, r)
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(shared.NewRemindersScheduledEvent(record.ID.String(), record.MemberID.String(), len(batch)))
	}
	s.emit("reminders_scheduled", map[string]interface{}{
		"record_id": record.ID.String(),
		"count":     len(batch),
	})

	return batch, nil
}

// Cancel removes every reminder referencing the record from the store and
// cancels any still-pending timer. Safe to call when zero reminders exist and
// safe to call repeatedly.
func (s *Scheduler) Cancel(ctx context.Context, recordID attendance.RecordID) error {
	unlock := s.locks.lock(recordID)
	defer unlock()
	return s.cancelLocked(ctx, recordID)
}

func (s *Scheduler) cancelLocked(ctx context.Context, recordID attendance.RecordID) error {
	removed, err := s.reminders.DeleteByRecord(ctx, recordID)
	if err != nil {
		return shared.WrapError("reminder", "Cancel", shared.ErrPersistence, "failed to delete reminders", err)
	}

	s.mu.Lock()
	recordHandles := s.handles[recordID]
	delete(s.handles, recordID)
	s.mu.Unlock()

	for id, handle := range recordHandles {
		if err := s.dispatch.CancelTimer(ctx, handle); err != nil {
			// Best-effort: the fire handler re-checks the store anyway.
			s.logger.Warn("timer cancel failed",
				"record_id", recordID.String(),
				"reminder_id", id.String(),
				"error", err,
			)
		}
	}

	if removed > 0 {
		if s.publisher != nil {
			_ = s.publisher.Publish(shared.NewRemindersCancelledEvent(recordID.String(), removed))
		}
		s.emit("reminders_cancelled", map[string]interface{}{
			"record_id": recordID.String(),
			"count":     removed,
		})
	}
	return nil
}

// PruneExpired reconciles scheduler state after a restart: reminders whose
// fire time has passed are marked delivered (pruned as expired), and future
// ones get fresh timer registrations since in-memory timers do not survive a
// process boundary. Returns the number pruned.
func (s *Scheduler) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	pending, err := s.reminders.ListPending(ctx)
	if err != nil {
		return 0, shared.WrapError("reminder", "PruneExpired", shared.ErrPersistence, "failed to list pending reminders", err)
	}

	pruned := 0
	for _, r := range pending {
		unlock := s.locks.lock(r.AttendanceRecordID)
		if !r.FireAt.After(now) {
			if err := s.reminders.MarkDelivered(ctx, r.ID, now); err != nil {
				unlock()
				return pruned, shared.WrapError("reminder", "PruneExpired", shared.ErrPersistence, "failed to mark reminder delivered", err)
			}
			pruned++
		} else if !s.hasHandle(r.AttendanceRecordID, r.ID) {
			s.registerTimer(ctx, r)
		}
		unlock()
	}

	if pruned > 0 {
		s.logger.Info("pruned expired reminders", "count", pruned)
	}
	return pruned, nil
}

// HandleFire is the dispatch layer's re-entry point. It re-checks that the
// record is still open before notifying: reminders never award points, so a
// fire racing a cancel degrades to a no-op.
func (s *Scheduler) HandleFire(ctx context.Context, payload reminder.FirePayload) {
	unlock := s.locks.lock(payload.RecordID)
	defer unlock()

	s.dropHandle(payload.RecordID, payload.ReminderID)

	record, err := s.records.GetByID(ctx, payload.RecordID)
	if err != nil || record == nil || !record.IsOpen() {
		// Record closed (or gone) between scheduling and firing. Retract any
		// leftovers so no dangling timer fires against a closed record.
		if err := s.cancelLocked(ctx, payload.RecordID); err != nil {
			s.logger.Warn("cleanup after stale fire failed",
				"record_id", payload.RecordID.String(),
				"error", err,
			)
		}
		return
	}

	message := messageFor(payload.Kind)
	if err := s.sender.Send(ctx, payload.MemberID, payload.Kind, message); err != nil {
		s.logger.Warn("reminder delivery failed",
			"reminder_id", payload.ReminderID.String(),
			"member_id", payload.MemberID.String(),
			"error", err,
		)
		s.emit("reminder_delivery_failed", map[string]interface{}{
			"reminder_id": payload.ReminderID.String(),
			"kind":        string(payload.Kind),
		})
		return
	}

	now := s.clock()
	if err := s.reminders.MarkDelivered(ctx, payload.ReminderID, now); err != nil {
		s.logger.Error("failed to mark reminder delivered",
			"reminder_id", payload.ReminderID.String(),
			"error", err,
		)
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(shared.NewReminderFiredEvent(
			payload.RecordID.String(),
			payload.ReminderID.String(),
			payload.MemberID.String(),
			string(payload.Kind),
		))
	}
	s.emit("reminder_fired", map[string]interface{}{
		"reminder_id": payload.ReminderID.String(),
		"kind":        string(payload.Kind),
	})
}

// registerTimer registers one timer with the dispatch layer. Failures are
// logged and telemetered but never returned: scheduling is a convenience,
// not a correctness requirement.
func (s *Scheduler) registerTimer(ctx context.Context, r *reminder.ScheduledReminder) {
	handle, err := s.dispatch.RegisterTimer(ctx, r.FireAt, reminder.FirePayload{
		ReminderID: r.ID,
		RecordID:   r.AttendanceRecordID,
		MemberID:   r.MemberID,
		Kind:       r.Kind,
	})
	if err != nil {
		s.logger.Warn("timer registration failed",
			"reminder_id", r.ID.String(),
			"fire_at", r.FireAt,
			"error", err,
		)
		s.emit("timer_registration_failed", map[string]interface{}{
			"reminder_id": r.ID.String(),
			"kind":        string(r.Kind),
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles[r.AttendanceRecordID] == nil {
		s.handles[r.AttendanceRecordID] = make(map[reminder.ReminderID]reminder.TimerHandle)
	}
	s.handles[r.AttendanceRecordID][r.ID] = handle
}

func (s *Scheduler) hasHandle(recordID attendance.RecordID, id reminder.ReminderID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handles[recordID][id]
	return ok
}

func (s *Scheduler) dropHandle(recordID attendance.RecordID, id reminder.ReminderID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles[recordID], id)
	if len(s.handles[recordID]) == 0 {
		delete(s.handles, recordID)
	}
}

func (s *Scheduler) emit(name string, props map[string]interface{}) {
	if s.telemetry != nil {
		s.telemetry.Emit(name, props)
	}
}

func messageFor(kind reminder.Kind) string {
	switch kind {
	case reminder.KindCheckoutReminder:
		return "Your event is ending soon. Remember to check out to receive your points."
	case reminder.KindMotivation:
		return "Almost there! Stay to the end for the full-attendance bonus."
	case reminder.KindDeadlineAlert:
		return "The event has ended. Check out now so your attendance is verified."
	default:
		return fmt.Sprintf("Attendance reminder (%s).", kind)
	}
}

// keyedMutex serializes operations per attendance record.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[attendance.RecordID]*recordLock
}

type recordLock struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the lock for a record and returns the matching unlock.
func (k *keyedMutex) lock(id attendance.RecordID) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[attendance.RecordID]*recordLock)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &recordLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
