package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE ATTENDANCE RECORDS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create attendance records table
-- Version: 001

CREATE TABLE IF NOT EXISTS attendance_records (
    id UUID PRIMARY KEY,
    member_id VARCHAR(64) NOT NULL,
    event_id VARCHAR(64) NOT NULL,
    event_type VARCHAR(30) NOT NULL,
    verification_method VARCHAR(20) NOT NULL,
    location VARCHAR(200) NOT NULL DEFAULT '',
    checked_in_at TIMESTAMP WITH TIME ZONE NOT NULL,
    checked_out_at TIMESTAMP WITH TIME ZONE,
    status VARCHAR(20) NOT NULL DEFAULT 'checked_in',
    duration_minutes INTEGER NOT NULL DEFAULT 0,
    points_a INTEGER NOT NULL DEFAULT 0,
    points_b INTEGER NOT NULL DEFAULT 0,
    degree_credits JSONB NOT NULL DEFAULT '[]'::jsonb,
    reflection TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_status CHECK (status IN ('checked_in', 'verified', 'missed_checkout', 'incomplete')),
    CONSTRAINT valid_duration CHECK (duration_minutes >= 0),
    CONSTRAINT valid_points CHECK (points_a >= 0 AND points_b >= 0)
);

CREATE INDEX IF NOT EXISTS idx_attendance_member_id ON attendance_records(member_id);
CREATE INDEX IF NOT EXISTS idx_attendance_member_checked_in ON attendance_records(member_id, checked_in_at DESC);
CREATE INDEX IF NOT EXISTS idx_attendance_status ON attendance_records(status) WHERE status = 'checked_in';

-- One open record per member, enforced at the storage layer as well.
CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_one_open_per_member
    ON attendance_records(member_id) WHERE status = 'checked_in';
`

const migration001Down = `
DROP TABLE IF EXISTS attendance_records;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE SCHEDULED REMINDERS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create scheduled reminders table
-- Version: 002

CREATE TABLE IF NOT EXISTS scheduled_reminders (
    id UUID PRIMARY KEY,
    attendance_record_id UUID NOT NULL REFERENCES attendance_records(id) ON DELETE CASCADE,
    member_id VARCHAR(64) NOT NULL,
    fire_at TIMESTAMP WITH TIME ZONE NOT NULL,
    kind VARCHAR(30) NOT NULL,
    state VARCHAR(20) NOT NULL DEFAULT 'scheduled',
    delivered_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_kind CHECK (kind IN ('checkout_reminder', 'motivation', 'deadline_alert')),
    CONSTRAINT valid_state CHECK (state IN ('scheduled', 'delivered', 'cancelled'))
);

CREATE INDEX IF NOT EXISTS idx_reminders_record_id ON scheduled_reminders(attendance_record_id);
CREATE INDEX IF NOT EXISTS idx_reminders_pending ON scheduled_reminders(fire_at) WHERE state = 'scheduled';
`

const migration002Down = `
DROP TABLE IF EXISTS scheduled_reminders;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE CHAPTER EVENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create chapter events catalog table
-- Version: 003

CREATE TABLE IF NOT EXISTS chapter_events (
    id VARCHAR(64) PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    event_type VARCHAR(30) NOT NULL,
    starts_at TIMESTAMP WITH TIME ZONE NOT NULL,
    ends_at TIMESTAMP WITH TIME ZONE NOT NULL,
    location VARCHAR(200) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_window CHECK (ends_at >= starts_at)
);

CREATE INDEX IF NOT EXISTS idx_chapter_events_starts_at ON chapter_events(starts_at);
`

const migration003Down = `
DROP TABLE IF EXISTS chapter_events;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// AllMigrations returns every migration in order.
func AllMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_attendance_records", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_scheduled_reminders", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_chapter_events", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

// Migrator handles database migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn, migrations: AllMigrations()}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(200) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`
	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}
	return nil
}

// GetAppliedMigrations returns all applied migration versions.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations in order.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}

		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
				mig.Version, mig.Name,
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: migration %03d (%s): %v", ErrMigrationFailed, mig.Version, mig.Name, err)
		}
	}
	return nil
}
