package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT CATALOG IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const eventColumns = `id, title, event_type, starts_at, ends_at, location`

// EventCatalog implements attendance.EventCatalog backed by the chapter_events
// table. The calendar itself is maintained by an external system; this core
// only reads it.
type EventCatalog struct {
	conn *Connection
}

// NewEventCatalog creates a new EventCatalog.
func NewEventCatalog(conn *Connection) *EventCatalog {
	return &EventCatalog{conn: conn}
}

// GetEvent returns metadata for an event.
func (c *EventCatalog) GetEvent(ctx context.Context, id attendance.EventID) (*attendance.EventMetadata, error) {
	query := fmt.Sprintf("SELECT %s FROM chapter_events WHERE id = $1", eventColumns)
	meta, err := scanEvent(c.conn.QueryRow(ctx, query, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrEventNotFound
	}
	return meta, err
}

// ListUpcoming returns events starting within the window, ordered by start time.
func (c *EventCatalog) ListUpcoming(ctx context.Context, from time.Time, within time.Duration) ([]*attendance.EventMetadata, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM chapter_events WHERE starts_at >= $1 AND starts_at <= $2 ORDER BY starts_at",
		eventColumns,
	)
	rows, err := c.conn.Query(ctx, query, from, from.Add(within))
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming events: %w", err)
	}
	defer rows.Close()

	var events []*attendance.EventMetadata
	for rows.Next() {
		meta, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, meta)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (*attendance.EventMetadata, error) {
	var (
		meta      attendance.EventMetadata
		id        string
		eventType string
	)
	err := row.Scan(&id, &meta.Title, &eventType, &meta.StartsAt, &meta.EndsAt, &meta.Location)
	if err != nil {
		return nil, err
	}
	meta.ID = attendance.EventID(id)
	meta.Type = attendance.EventType(eventType)
	return &meta, nil
}
