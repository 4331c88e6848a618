package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/internal/application/reminders"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRUNE REMINDERS JOB
// ══════════════════════════════════════════════════════════════════════════════

// PruneRemindersJob reconciles the durable reminder store with the in-process
// timer registry. Reminders whose fire time already passed are retired, and
// pending reminders that lost their timer across a restart get a fresh one.
type PruneRemindersJob struct {
	scheduler *reminders.Scheduler
	logger    *slog.Logger
	timeout   time.Duration
}

// NewPruneRemindersJob creates a new prune job.
func NewPruneRemindersJob(scheduler *reminders.Scheduler, logger *slog.Logger) *PruneRemindersJob {
	return &PruneRemindersJob{
		scheduler: scheduler,
		logger:    logger,
		timeout:   2 * time.Minute,
	}
}

// Name implements scheduler.Job.
func (j *PruneRemindersJob) Name() string {
	return "prune_reminders"
}

// Description implements scheduler.Job.
func (j *PruneRemindersJob) Description() string {
	return "Retires expired reminders and re-registers timers lost across restarts"
}

// Run implements scheduler.Job.
func (j *PruneRemindersJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	pruned, err := j.scheduler.PruneExpired(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("prune reminders: %w", err)
	}

	if pruned > 0 {
		j.logger.Info("pruned expired reminders", "pruned", pruned)
	}
	return nil
}
