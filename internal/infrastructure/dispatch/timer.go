// Package dispatch implements the timer-based reminder dispatch layer.
// Timers live in process memory only; the durable reminder store remains the
// source of truth and PruneExpired reconciles after a restart.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/reminder"
)

// ══════════════════════════════════════════════════════════════════════════════
// TIMER DISPATCH
// ══════════════════════════════════════════════════════════════════════════════

// TimerDispatch implements reminder.Dispatch with in-process timers.
// Each registered timer fires exactly once and hands its payload to the
// configured FireHandler on a fresh goroutine.
type TimerDispatch struct {
	mu      sync.Mutex
	timers  map[reminder.TimerHandle]*time.Timer
	handler reminder.FireHandler
	logger  *slog.Logger
	clock   func() time.Time
	closed  bool

	// fireTimeout bounds the context handed to the fire handler.
	fireTimeout time.Duration
}

// Config contains configuration for TimerDispatch.
type Config struct {
	// Handler is invoked when a timer fires. Required before any timer fires;
	// may be set later via SetHandler to break construction cycles.
	Handler reminder.FireHandler

	// Logger for structured logging.
	Logger *slog.Logger

	// FireTimeout bounds each fire handler invocation. Default: 30s.
	FireTimeout time.Duration
}

// NewTimerDispatch creates a new timer dispatch.
func NewTimerDispatch(cfg Config) *TimerDispatch {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.FireTimeout <= 0 {
		cfg.FireTimeout = 30 * time.Second
	}

	return &TimerDispatch{
		timers:      make(map[reminder.TimerHandle]*time.Timer),
		handler:     cfg.Handler,
		logger:      cfg.Logger,
		clock:       time.Now,
		fireTimeout: cfg.FireTimeout,
	}
}

// SetHandler installs the fire handler. The scheduler needs the dispatch at
// construction time and the dispatch needs the scheduler's HandleFire, so the
// handler is wired after both exist.
func (d *TimerDispatch) SetHandler(handler reminder.FireHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
}

// RegisterTimer arranges for the payload to be delivered at fireAt.
// A fire time in the past fires almost immediately.
func (d *TimerDispatch) RegisterTimer(ctx context.Context, fireAt time.Time, payload reminder.FirePayload) (reminder.TimerHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", context.Canceled
	}

	handle := reminder.TimerHandle(uuid.New().String())
	delay := fireAt.Sub(d.clock())
	if delay < 0 {
		delay = 0
	}

	d.timers[handle] = time.AfterFunc(delay, func() {
		d.fire(handle, payload)
	})

	d.logger.Debug("timer registered",
		"handle", handle,
		"reminder_id", payload.ReminderID,
		"fire_at", fireAt,
	)
	return handle, nil
}

// CancelTimer cancels a pending timer. Cancelling an unknown or already
// fired handle is a no-op.
func (d *TimerDispatch) CancelTimer(ctx context.Context, handle reminder.TimerHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	timer, ok := d.timers[handle]
	if !ok {
		return nil
	}
	delete(d.timers, handle)
	timer.Stop()
	return nil
}

// fire runs on the timer's goroutine when it expires.
func (d *TimerDispatch) fire(handle reminder.TimerHandle, payload reminder.FirePayload) {
	d.mu.Lock()
	delete(d.timers, handle)
	handler := d.handler
	closed := d.closed
	d.mu.Unlock()

	if closed {
		return
	}
	if handler == nil {
		d.logger.Error("timer fired with no handler installed", "reminder_id", payload.ReminderID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.fireTimeout)
	defer cancel()

	handler(ctx, payload)
}

// PendingCount returns the number of timers currently registered.
func (d *TimerDispatch) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Close stops all pending timers. Timers that already fired keep running
// their handler to completion.
func (d *TimerDispatch) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	for handle, timer := range d.timers {
		timer.Stop()
		delete(d.timers, handle)
	}

	d.logger.Info("timer dispatch closed")
	return nil
}
