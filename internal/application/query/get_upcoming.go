package query

import (
	"context"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET UPCOMING WITH POTENTIAL POINTS QUERY
// Lists upcoming catalog events annotated with the points a member could earn
// by attending, including the full-attendance bonus ceiling.
// ══════════════════════════════════════════════════════════════════════════════

// GetUpcomingQuery contains parameters for the upcoming-events query.
type GetUpcomingQuery struct {
	MemberID string

	// Within bounds how far ahead to look (default 14 days).
	Within time.Duration

	// Limit caps the number of events returned (default 20).
	Limit int
}

// Validate validates the query parameters.
func (q *GetUpcomingQuery) Validate() error {
	if q.MemberID == "" {
		return shared.NewDomainError("attendance", "GetUpcoming", shared.ErrInvalidInput, "member_id is required")
	}
	if q.Within <= 0 {
		q.Within = 14 * 24 * time.Hour
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	return nil
}

// UpcomingEvent is one upcoming event with its potential awards.
type UpcomingEvent struct {
	Event attendance.EventMetadata

	// Base awards for showing up.
	PotentialPointsA int
	PotentialPointsB int

	// Awards if the member stays past the full-attendance threshold.
	MaxPointsA int
	MaxPointsB int

	DegreeCredits []attendance.DegreeCredit
}

// GetUpcomingHandler handles GetUpcomingQuery.
type GetUpcomingHandler struct {
	catalog attendance.EventCatalog
	table   *attendance.PointsTable
	clock   func() time.Time
}

// NewGetUpcomingHandler creates a GetUpcomingHandler.
func NewGetUpcomingHandler(catalog attendance.EventCatalog, table *attendance.PointsTable) *GetUpcomingHandler {
	return &GetUpcomingHandler{catalog: catalog, table: table, clock: time.Now}
}

// WithClock overrides the handler clock, for tests.
func (h *GetUpcomingHandler) WithClock(clock func() time.Time) *GetUpcomingHandler {
	h.clock = clock
	return h
}

// Handle executes the query. Events whose type is missing from the scoring
// table are skipped rather than shown with zero awards.
func (h *GetUpcomingHandler) Handle(ctx context.Context, q GetUpcomingQuery) ([]UpcomingEvent, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	now := h.clock()
	events, err := h.catalog.ListUpcoming(ctx, now, q.Within)
	if err != nil {
		return nil, shared.WrapError("attendance", "GetUpcoming", shared.ErrPersistence, "failed to list upcoming events", err)
	}

	out := make([]UpcomingEvent, 0, len(events))
	for _, meta := range events {
		baseA, baseB, err := h.table.Lookup(meta.Type)
		if err != nil {
			continue
		}
		out = append(out, UpcomingEvent{
			Event:            *meta,
			PotentialPointsA: baseA,
			PotentialPointsB: baseB,
			MaxPointsA:       withBonus(baseA),
			MaxPointsB:       withBonus(baseB),
			DegreeCredits:    h.table.CreditsFor(meta.Type),
		})
		if len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func withBonus(base int) int {
	return int(float64(base)*attendance.FullAttendanceBonus + 0.5)
}
