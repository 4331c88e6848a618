package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/reminder"
)

// ══════════════════════════════════════════════════════════════════════════════
// REMINDER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const reminderColumns = `id, attendance_record_id, member_id, fire_at, kind, state, delivered_at, created_at`

// ReminderRepository implements reminder.Repository for PostgreSQL.
type ReminderRepository struct {
	conn *Connection
}

// NewReminderRepository creates a new ReminderRepository.
func NewReminderRepository(conn *Connection) *ReminderRepository {
	return &ReminderRepository{conn: conn}
}

// SaveAll persists a batch of reminders in one transaction.
func (r *ReminderRepository) SaveAll(ctx context.Context, batch []*reminder.ScheduledReminder) error {
	if len(batch) == 0 {
		return nil
	}

	query := `
		INSERT INTO scheduled_reminders (
			id, attendance_record_id, member_id, fire_at, kind, state, delivered_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			delivered_at = EXCLUDED.delivered_at
	`

	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		for _, rem := range batch {
			_, err := tx.Exec(ctx, query,
				rem.ID.String(),
				rem.AttendanceRecordID.String(),
				rem.MemberID.String(),
				rem.FireAt,
				string(rem.Kind),
				string(rem.State),
				rem.DeliveredAt,
				rem.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to save reminder %s: %w", rem.ID, err)
			}
		}
		return nil
	})
}

// ListByRecord returns every reminder referencing the record.
func (r *ReminderRepository) ListByRecord(ctx context.Context, recordID attendance.RecordID) ([]*reminder.ScheduledReminder, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM scheduled_reminders WHERE attendance_record_id = $1 ORDER BY fire_at",
		reminderColumns,
	)
	rows, err := r.conn.Query(ctx, query, recordID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	return scanReminders(rows)
}

// DeleteByRecord removes every reminder referencing the record.
func (r *ReminderRepository) DeleteByRecord(ctx context.Context, recordID attendance.RecordID) (int, error) {
	tag, err := r.conn.Exec(ctx,
		"DELETE FROM scheduled_reminders WHERE attendance_record_id = $1",
		recordID.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reminders: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListPending returns all scheduled reminders ordered by fire time.
func (r *ReminderRepository) ListPending(ctx context.Context) ([]*reminder.ScheduledReminder, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM scheduled_reminders WHERE state = 'scheduled' ORDER BY fire_at",
		reminderColumns,
	)
	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending reminders: %w", err)
	}
	defer rows.Close()

	return scanReminders(rows)
}

// MarkDelivered transitions a reminder to delivered.
func (r *ReminderRepository) MarkDelivered(ctx context.Context, id reminder.ReminderID, at time.Time) error {
	_, err := r.conn.Exec(ctx,
		"UPDATE scheduled_reminders SET state = 'delivered', delivered_at = $1 WHERE id = $2 AND state = 'scheduled'",
		at, id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark reminder delivered: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanReminders(rows pgx.Rows) ([]*reminder.ScheduledReminder, error) {
	var reminders []*reminder.ScheduledReminder
	for rows.Next() {
		var (
			rem         reminder.ScheduledReminder
			id          string
			recordID    string
			memberID    string
			kind        string
			state       string
			deliveredAt *time.Time
		)
		err := rows.Scan(&id, &recordID, &memberID, &rem.FireAt, &kind, &state, &deliveredAt, &rem.CreatedAt)
		if err != nil {
			return nil, err
		}
		rem.ID = reminder.ReminderID(id)
		rem.AttendanceRecordID = attendance.RecordID(recordID)
		rem.MemberID = attendance.MemberID(memberID)
		rem.Kind = reminder.Kind(kind)
		rem.State = reminder.State(state)
		rem.DeliveredAt = deliveredAt
		reminders = append(reminders, &rem)
	}
	return reminders, rows.Err()
}
