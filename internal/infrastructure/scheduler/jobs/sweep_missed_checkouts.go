// Package jobs contains implementations of scheduled jobs for the Chapter
// Attendance Hub.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// SWEEP MISSED CHECKOUTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// SweepMissedCheckoutsJob closes attendance records that stayed open long
// after their event ended. Members who forget to check out would otherwise
// hold their open slot forever and block the next check-in.
type SweepMissedCheckoutsJob struct {
	handler *command.SweepMissedHandler
	logger  *slog.Logger
	config  SweepMissedCheckoutsConfig
}

// SweepMissedCheckoutsConfig contains configuration for the sweep job.
type SweepMissedCheckoutsConfig struct {
	// Cutoff is how long after the event end a record may stay open
	// before the sweep closes it.
	Cutoff time.Duration

	// Timeout is the maximum duration for one sweep run.
	Timeout time.Duration
}

// DefaultSweepMissedCheckoutsConfig returns sensible defaults.
func DefaultSweepMissedCheckoutsConfig() SweepMissedCheckoutsConfig {
	return SweepMissedCheckoutsConfig{
		Cutoff:  2 * time.Hour,
		Timeout: 5 * time.Minute,
	}
}

// NewSweepMissedCheckoutsJob creates a new sweep job.
func NewSweepMissedCheckoutsJob(
	handler *command.SweepMissedHandler,
	config SweepMissedCheckoutsConfig,
	logger *slog.Logger,
) *SweepMissedCheckoutsJob {
	if config.Cutoff <= 0 {
		config.Cutoff = 2 * time.Hour
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	return &SweepMissedCheckoutsJob{
		handler: handler,
		logger:  logger,
		config:  config,
	}
}

// Name implements scheduler.Job.
func (j *SweepMissedCheckoutsJob) Name() string {
	return "sweep_missed_checkouts"
}

// Description implements scheduler.Job.
func (j *SweepMissedCheckoutsJob) Description() string {
	return "Closes attendance records left open past the checkout cutoff"
}

// Run implements scheduler.Job.
func (j *SweepMissedCheckoutsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	closed, err := j.handler.Handle(ctx, command.SweepMissedCommand{Cutoff: j.config.Cutoff})
	if err != nil {
		return fmt.Errorf("sweep missed checkouts: %w", err)
	}

	if closed > 0 {
		j.logger.Info("sweep closed stale records", "closed", closed, "cutoff", j.config.Cutoff)
	}
	return nil
}
