package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const attendanceColumns = `id, member_id, event_id, event_type, verification_method, location,
	   checked_in_at, checked_out_at, status, duration_minutes, points_a, points_b,
	   degree_credits, reflection, created_at, updated_at`

// AttendanceRepository implements attendance.Repository for PostgreSQL.
type AttendanceRepository struct {
	conn *Connection
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(conn *Connection) *AttendanceRepository {
	return &AttendanceRepository{conn: conn}
}

// Save persists a record (create or update).
func (r *AttendanceRepository) Save(ctx context.Context, rec *attendance.Record) error {
	query := `
		INSERT INTO attendance_records (
			id, member_id, event_id, event_type, verification_method, location,
			checked_in_at, checked_out_at, status, duration_minutes, points_a, points_b,
			degree_credits, reflection, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			checked_out_at = EXCLUDED.checked_out_at,
			status = EXCLUDED.status,
			duration_minutes = EXCLUDED.duration_minutes,
			points_a = EXCLUDED.points_a,
			points_b = EXCLUDED.points_b,
			degree_credits = EXCLUDED.degree_credits,
			reflection = EXCLUDED.reflection,
			updated_at = EXCLUDED.updated_at
	`

	creditsJSON, err := json.Marshal(creditsToRows(rec.DegreeCredits))
	if err != nil {
		return fmt.Errorf("failed to marshal degree credits: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		rec.ID.String(),
		rec.MemberID.String(),
		rec.EventID.String(),
		rec.EventType.String(),
		string(rec.VerificationMethod),
		rec.Location,
		rec.CheckedInAt,
		rec.CheckedOutAt,
		string(rec.Status),
		rec.DurationMinutes,
		rec.PointsA,
		rec.PointsB,
		creditsJSON,
		rec.Reflection,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			// The partial unique index on open records caught a concurrent
			// check-in that the application-level check missed.
			return shared.ErrDuplicateCheckIn
		}
		return fmt.Errorf("failed to save attendance record: %w", err)
	}
	return nil
}

// GetByID returns a record by ID, or nil when absent.
func (r *AttendanceRepository) GetByID(ctx context.Context, id attendance.RecordID) (*attendance.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance_records WHERE id = $1", attendanceColumns)
	rec, err := r.scanRecord(r.conn.QueryRow(ctx, query, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// GetOpenRecord returns the member's open record, or nil when none exists.
func (r *AttendanceRepository) GetOpenRecord(ctx context.Context, memberID attendance.MemberID) (*attendance.Record, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM attendance_records WHERE member_id = $1 AND status = 'checked_in'",
		attendanceColumns,
	)
	rec, err := r.scanRecord(r.conn.QueryRow(ctx, query, memberID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// GetHistory returns a member's records matching the filter, newest first.
func (r *AttendanceRepository) GetHistory(ctx context.Context, memberID attendance.MemberID, filter attendance.HistoryFilter) ([]*attendance.Record, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM attendance_records WHERE member_id = $1", attendanceColumns)

	args := []interface{}{memberID.String()}
	if filter.EventType != "" {
		args = append(args, filter.EventType.String())
		fmt.Fprintf(&sb, " AND event_type = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		fmt.Fprintf(&sb, " AND checked_in_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		fmt.Fprintf(&sb, " AND checked_in_at <= $%d", len(args))
	}
	sb.WriteString(" ORDER BY checked_in_at DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := r.conn.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

// ListOpenRecords returns every open record across all members.
func (r *AttendanceRepository) ListOpenRecords(ctx context.Context) ([]*attendance.Record, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM attendance_records WHERE status = 'checked_in' ORDER BY checked_in_at",
		attendanceColumns,
	)
	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list open records: %w", err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

type creditRow struct {
	Tier              string  `json:"tier"`
	Category          string  `json:"category"`
	PointsEarned      int     `json:"points_earned"`
	CompletionPercent float64 `json:"completion_percent"`
}

func creditsToRows(credits []attendance.DegreeCredit) []creditRow {
	rows := make([]creditRow, 0, len(credits))
	for _, c := range credits {
		rows = append(rows, creditRow{
			Tier:              string(c.Tier),
			Category:          string(c.Category),
			PointsEarned:      c.PointsEarned,
			CompletionPercent: c.CompletionPercent,
		})
	}
	return rows
}

func rowsToCredits(rows []creditRow) []attendance.DegreeCredit {
	if len(rows) == 0 {
		return nil
	}
	credits := make([]attendance.DegreeCredit, 0, len(rows))
	for _, row := range rows {
		credits = append(credits, attendance.DegreeCredit{
			Tier:              attendance.DegreeTier(row.Tier),
			Category:          attendance.CreditCategory(row.Category),
			PointsEarned:      row.PointsEarned,
			CompletionPercent: row.CompletionPercent,
		})
	}
	return credits
}

func (r *AttendanceRepository) scanRecord(row pgx.Row) (*attendance.Record, error) {
	var (
		rec          attendance.Record
		id           string
		memberID     string
		eventID      string
		eventType    string
		method       string
		status       string
		checkedOutAt *time.Time
		creditsJSON  []byte
	)

	err := row.Scan(
		&id,
		&memberID,
		&eventID,
		&eventType,
		&method,
		&rec.Location,
		&rec.CheckedInAt,
		&checkedOutAt,
		&status,
		&rec.DurationMinutes,
		&rec.PointsA,
		&rec.PointsB,
		&creditsJSON,
		&rec.Reflection,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var credits []creditRow
	if len(creditsJSON) > 0 {
		if err := json.Unmarshal(creditsJSON, &credits); err != nil {
			return nil, fmt.Errorf("failed to unmarshal degree credits: %w", err)
		}
	}

	rec.ID = attendance.RecordID(id)
	rec.MemberID = attendance.MemberID(memberID)
	rec.EventID = attendance.EventID(eventID)
	rec.EventType = attendance.EventType(eventType)
	rec.VerificationMethod = attendance.VerificationMethod(method)
	rec.Status = attendance.Status(status)
	rec.CheckedOutAt = checkedOutAt
	rec.DegreeCredits = rowsToCredits(credits)
	return &rec, nil
}

func (r *AttendanceRepository) scanRecords(rows pgx.Rows) ([]*attendance.Record, error) {
	var records []*attendance.Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
