// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET HISTORY QUERY
// Returns a member's attendance history, most recent first.
// ══════════════════════════════════════════════════════════════════════════════

// GetHistoryQuery contains parameters for the history query.
type GetHistoryQuery struct {
	MemberID string

	// Optional filters; zero values mean unfiltered.
	EventType string
	Status    string
	From      time.Time
	To        time.Time
	Limit     int
}

// Validate validates the query parameters.
func (q *GetHistoryQuery) Validate() error {
	if q.MemberID == "" {
		return shared.NewDomainError("attendance", "GetHistory", shared.ErrInvalidInput, "member_id is required")
	}
	if q.EventType != "" && !attendance.EventType(q.EventType).IsValid() {
		return shared.ErrUnknownEventType
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	return nil
}

// GetHistoryHandler handles GetHistoryQuery.
type GetHistoryHandler struct {
	records attendance.Repository
}

// NewGetHistoryHandler creates a GetHistoryHandler.
func NewGetHistoryHandler(records attendance.Repository) *GetHistoryHandler {
	return &GetHistoryHandler{records: records}
}

// Handle executes the query.
func (h *GetHistoryHandler) Handle(ctx context.Context, q GetHistoryQuery) ([]*attendance.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	filter := attendance.HistoryFilter{
		EventType: attendance.EventType(q.EventType),
		Status:    attendance.Status(q.Status),
		From:      q.From,
		To:        q.To,
		Limit:     q.Limit,
	}

	records, err := h.records.GetHistory(ctx, attendance.MemberID(q.MemberID), filter)
	if err != nil {
		return nil, shared.WrapError("attendance", "GetHistory", shared.ErrPersistence, "failed to load history", err)
	}
	return records, nil
}
