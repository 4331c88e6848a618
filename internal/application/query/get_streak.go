package query

import (
	"context"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STREAK QUERY
// Derives engagement metrics from the member's verified attendance history.
// Streak granularity is distinct ISO weeks (fixed policy).
// ══════════════════════════════════════════════════════════════════════════════

// GetStreakQuery contains parameters for the streak query.
type GetStreakQuery struct {
	MemberID string
}

// Validate validates the query parameters.
func (q *GetStreakQuery) Validate() error {
	if q.MemberID == "" {
		return shared.NewDomainError("attendance", "GetStreak", shared.ErrInvalidInput, "member_id is required")
	}
	return nil
}

// StreakCache is an optional read-through cache for streak summaries.
// Implementations degrade silently: a failed lookup is a miss, a failed
// store is dropped.
type StreakCache interface {
	Get(ctx context.Context, memberID string) (attendance.Streak, bool)
	Set(ctx context.Context, memberID string, streak attendance.Streak)
}

// GetStreakHandler handles GetStreakQuery.
type GetStreakHandler struct {
	records attendance.Repository
	cache   StreakCache // nil when caching is disabled
	clock   func() time.Time
}

// NewGetStreakHandler creates a GetStreakHandler.
func NewGetStreakHandler(records attendance.Repository) *GetStreakHandler {
	return &GetStreakHandler{records: records, clock: time.Now}
}

// WithCache installs a read-through streak cache.
func (h *GetStreakHandler) WithCache(cache StreakCache) *GetStreakHandler {
	h.cache = cache
	return h
}

// WithClock overrides the handler clock, for tests.
func (h *GetStreakHandler) WithClock(clock func() time.Time) *GetStreakHandler {
	h.clock = clock
	return h
}

// Handle executes the query. The calculation itself is pure; this handler
// only supplies the history and "now".
func (h *GetStreakHandler) Handle(ctx context.Context, q GetStreakQuery) (attendance.Streak, error) {
	if err := q.Validate(); err != nil {
		return attendance.Streak{}, err
	}

	if h.cache != nil {
		if streak, ok := h.cache.Get(ctx, q.MemberID); ok {
			return streak, nil
		}
	}

	history, err := h.records.GetHistory(ctx, attendance.MemberID(q.MemberID), attendance.HistoryFilter{})
	if err != nil {
		return attendance.Streak{}, shared.WrapError("attendance", "GetStreak", shared.ErrPersistence, "failed to load history", err)
	}

	streak := attendance.CalculateStreak(history, h.clock())
	if h.cache != nil {
		h.cache.Set(ctx, q.MemberID, streak)
	}
	return streak, nil
}
