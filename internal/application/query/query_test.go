package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

// stubRecordRepo returns canned history and captures the filter it was asked for.
type stubRecordRepo struct {
	history    []*attendance.Record
	lastMember attendance.MemberID
	lastFilter attendance.HistoryFilter
}

func (r *stubRecordRepo) Save(ctx context.Context, record *attendance.Record) error { return nil }

func (r *stubRecordRepo) GetByID(ctx context.Context, id attendance.RecordID) (*attendance.Record, error) {
	return nil, nil
}

func (r *stubRecordRepo) GetOpenRecord(ctx context.Context, memberID attendance.MemberID) (*attendance.Record, error) {
	return nil, nil
}

func (r *stubRecordRepo) GetHistory(ctx context.Context, memberID attendance.MemberID, filter attendance.HistoryFilter) ([]*attendance.Record, error) {
	r.lastMember = memberID
	r.lastFilter = filter
	return r.history, nil
}

func (r *stubRecordRepo) ListOpenRecords(ctx context.Context) ([]*attendance.Record, error) {
	return nil, nil
}

// stubCatalog serves a fixed upcoming-events list.
type stubCatalog struct {
	upcoming []*attendance.EventMetadata
}

func (c *stubCatalog) GetEvent(ctx context.Context, id attendance.EventID) (*attendance.EventMetadata, error) {
	return nil, shared.ErrEventNotFound
}

func (c *stubCatalog) ListUpcoming(ctx context.Context, from time.Time, within time.Duration) ([]*attendance.EventMetadata, error) {
	return c.upcoming, nil
}

func TestGetHistoryRequiresMemberID(t *testing.T) {
	h := NewGetHistoryHandler(&stubRecordRepo{})

	_, err := h.Handle(context.Background(), GetHistoryQuery{})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestGetHistoryRejectsUnknownEventType(t *testing.T) {
	h := NewGetHistoryHandler(&stubRecordRepo{})

	_, err := h.Handle(context.Background(), GetHistoryQuery{MemberID: "member-1", EventType: "party"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestGetHistoryPassesFilterThrough(t *testing.T) {
	repo := &stubRecordRepo{}
	h := NewGetHistoryHandler(repo)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

	_, err := h.Handle(context.Background(), GetHistoryQuery{
		MemberID:  "member-1",
		EventType: "meeting",
		Status:    "verified",
		From:      from,
		To:        to,
		Limit:     10,
	})
	assert.NoError(t, err)
	assert.Equal(t, attendance.MemberID("member-1"), repo.lastMember)
	assert.Equal(t, attendance.EventTypeMeeting, repo.lastFilter.EventType)
	assert.Equal(t, attendance.StatusVerified, repo.lastFilter.Status)
	assert.Equal(t, from, repo.lastFilter.From)
	assert.Equal(t, to, repo.lastFilter.To)
	assert.Equal(t, 10, repo.lastFilter.Limit)
}

func TestGetHistoryCapsLimit(t *testing.T) {
	repo := &stubRecordRepo{}
	h := NewGetHistoryHandler(repo)

	_, err := h.Handle(context.Background(), GetHistoryQuery{MemberID: "member-1", Limit: 10000})
	assert.NoError(t, err)
	assert.Equal(t, 500, repo.lastFilter.Limit)
}

func TestGetStreakDerivesFromHistory(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	repo := &stubRecordRepo{history: []*attendance.Record{
		{ID: "r1", MemberID: "member-1", EventID: "e1", EventType: attendance.EventTypeMeeting,
			CheckedInAt: time.Date(2026, 8, 26, 19, 0, 0, 0, time.UTC), Status: attendance.StatusVerified},
		{ID: "r2", MemberID: "member-1", EventID: "e2", EventType: attendance.EventTypeMeeting,
			CheckedInAt: time.Date(2026, 8, 19, 19, 0, 0, 0, time.UTC), Status: attendance.StatusVerified},
	}}

	h := NewGetStreakHandler(repo).WithClock(func() time.Time { return now })

	streak, err := h.Handle(context.Background(), GetStreakQuery{MemberID: "member-1"})
	assert.NoError(t, err)
	assert.Equal(t, 2, streak.CurrentStreak)
	assert.Equal(t, 2, streak.LongestStreak)
	assert.Equal(t, 2, streak.ThisMonth)
}

func TestGetStreakRequiresMemberID(t *testing.T) {
	h := NewGetStreakHandler(&stubRecordRepo{})

	_, err := h.Handle(context.Background(), GetStreakQuery{})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

// stubStreakCache is an in-memory query.StreakCache.
type stubStreakCache struct {
	entries map[string]attendance.Streak
	hits    int
	sets    int
}

func (c *stubStreakCache) Get(ctx context.Context, memberID string) (attendance.Streak, bool) {
	streak, ok := c.entries[memberID]
	if ok {
		c.hits++
	}
	return streak, ok
}

func (c *stubStreakCache) Set(ctx context.Context, memberID string, streak attendance.Streak) {
	c.entries[memberID] = streak
	c.sets++
}

func TestGetStreakReadsThroughCache(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	repo := &stubRecordRepo{history: []*attendance.Record{
		{ID: "r1", MemberID: "member-1", EventID: "e1", EventType: attendance.EventTypeMeeting,
			CheckedInAt: time.Date(2026, 8, 26, 19, 0, 0, 0, time.UTC), Status: attendance.StatusVerified},
	}}
	cache := &stubStreakCache{entries: make(map[string]attendance.Streak)}

	h := NewGetStreakHandler(repo).
		WithCache(cache).
		WithClock(func() time.Time { return now })

	// First call misses and populates the cache.
	first, err := h.Handle(context.Background(), GetStreakQuery{MemberID: "member-1"})
	assert.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Zero(t, cache.hits)

	// Second call is served from the cache.
	second, err := h.Handle(context.Background(), GetStreakQuery{MemberID: "member-1"})
	assert.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first, second)
}

func TestGetUpcomingAnnotatesPotentialPoints(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	catalog := &stubCatalog{upcoming: []*attendance.EventMetadata{
		{ID: "e1", Title: "Chapter meeting", Type: attendance.EventTypeMeeting,
			StartsAt: now.Add(24 * time.Hour), EndsAt: now.Add(26 * time.Hour)},
		{ID: "e2", Title: "State competition", Type: attendance.EventTypeCompetition,
			StartsAt: now.Add(48 * time.Hour), EndsAt: now.Add(52 * time.Hour)},
	}}

	h := NewGetUpcomingHandler(catalog, attendance.DefaultPointsTable()).
		WithClock(func() time.Time { return now })

	events, err := h.Handle(context.Background(), GetUpcomingQuery{MemberID: "member-1"})
	assert.NoError(t, err)
	assert.Len(t, events, 2)

	meeting := events[0]
	assert.Equal(t, attendance.EventID("e1"), meeting.Event.ID)
	assert.Equal(t, 10, meeting.PotentialPointsA)
	assert.Equal(t, 5, meeting.PotentialPointsB)
	assert.Equal(t, 12, meeting.MaxPointsA)
	assert.Equal(t, 6, meeting.MaxPointsB)
	assert.Len(t, meeting.DegreeCredits, 1)

	competition := events[1]
	assert.Equal(t, 25, competition.PotentialPointsA)
	assert.Equal(t, 30, competition.MaxPointsA)
	assert.Equal(t, 18, competition.MaxPointsB)
}

func TestGetUpcomingSkipsUnknownEventTypes(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	catalog := &stubCatalog{upcoming: []*attendance.EventMetadata{
		{ID: "e1", Type: attendance.EventType("mystery"), StartsAt: now.Add(time.Hour), EndsAt: now.Add(2 * time.Hour)},
		{ID: "e2", Type: attendance.EventTypeWorkshop, StartsAt: now.Add(3 * time.Hour), EndsAt: now.Add(4 * time.Hour)},
	}}

	h := NewGetUpcomingHandler(catalog, attendance.DefaultPointsTable()).
		WithClock(func() time.Time { return now })

	events, err := h.Handle(context.Background(), GetUpcomingQuery{MemberID: "member-1"})
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, attendance.EventID("e2"), events[0].Event.ID)
}

func TestGetUpcomingHonorsLimit(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	catalog := &stubCatalog{upcoming: []*attendance.EventMetadata{
		{ID: "e1", Type: attendance.EventTypeMeeting, StartsAt: now.Add(time.Hour), EndsAt: now.Add(2 * time.Hour)},
		{ID: "e2", Type: attendance.EventTypeMeeting, StartsAt: now.Add(3 * time.Hour), EndsAt: now.Add(4 * time.Hour)},
		{ID: "e3", Type: attendance.EventTypeMeeting, StartsAt: now.Add(5 * time.Hour), EndsAt: now.Add(6 * time.Hour)},
	}}

	h := NewGetUpcomingHandler(catalog, attendance.DefaultPointsTable()).
		WithClock(func() time.Time { return now })

	events, err := h.Handle(context.Background(), GetUpcomingQuery{MemberID: "member-1", Limit: 2})
	assert.NoError(t, err)
	assert.Len(t, events, 2)
}
