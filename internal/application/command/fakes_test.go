package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/internal/application/reminders"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/reminder"
)

// In-memory doubles for the handler tests. They mirror the persistence
// contracts closely enough that handler logic is exercised end to end without
// a database.

type memRecordRepo struct {
	mu      sync.Mutex
	records map[attendance.RecordID]*attendance.Record
	saveErr error
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{records: make(map[attendance.RecordID]*attendance.Record)}
}

func (r *memRecordRepo) Save(ctx context.Context, record *attendance.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	copied := *record
	r.records[record.ID] = &copied
	return nil
}

func (r *memRecordRepo) GetByID(ctx context.Context, id attendance.RecordID) (*attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (r *memRecordRepo) GetOpenRecord(ctx context.Context, memberID attendance.MemberID) (*attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.MemberID == memberID && record.IsOpen() {
			copied := *record
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memRecordRepo) GetHistory(ctx context.Context, memberID attendance.MemberID, filter attendance.HistoryFilter) ([]*attendance.Record, error) {
	return nil, nil
}

func (r *memRecordRepo) ListOpenRecords(ctx context.Context) ([]*attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*attendance.Record
	for _, record := range r.records {
		if record.IsOpen() {
			copied := *record
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memCatalog struct {
	mu     sync.Mutex
	events map[attendance.EventID]attendance.EventMetadata
}

func newMemCatalog(events ...attendance.EventMetadata) *memCatalog {
	c := &memCatalog{events: make(map[attendance.EventID]attendance.EventMetadata)}
	for _, e := range events {
		c.events[e.ID] = e
	}
	return c
}

func (c *memCatalog) GetEvent(ctx context.Context, id attendance.EventID) (*attendance.EventMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	event, ok := c.events[id]
	if !ok {
		return nil, errors.New("event not found")
	}
	return &event, nil
}

func (c *memCatalog) ListUpcoming(ctx context.Context, from time.Time, within time.Duration) ([]*attendance.EventMetadata, error) {
	return nil, nil
}

type memGuard struct {
	mu       sync.Mutex
	held     map[attendance.MemberID]attendance.RecordID
	rejected bool
}

func newMemGuard() *memGuard {
	return &memGuard{held: make(map[attendance.MemberID]attendance.RecordID)}
}

func (g *memGuard) TryAcquire(ctx context.Context, memberID attendance.MemberID, recordID attendance.RecordID, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rejected {
		return false, nil
	}
	if _, ok := g.held[memberID]; ok {
		return false, nil
	}
	g.held[memberID] = recordID
	return true, nil
}

func (g *memGuard) Release(ctx context.Context, memberID attendance.MemberID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, memberID)
	return nil
}

func (g *memGuard) holds(memberID attendance.MemberID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[memberID]
	return ok
}

type memReminderRepo struct {
	mu    sync.Mutex
	items map[reminder.ReminderID]*reminder.ScheduledReminder
}

func newMemReminderRepo() *memReminderRepo {
	return &memReminderRepo{items: make(map[reminder.ReminderID]*reminder.ScheduledReminder)}
}

func (r *memReminderRepo) SaveAll(ctx context.Context, batch []*reminder.ScheduledReminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range batch {
		copied := *item
		r.items[item.ID] = &copied
	}
	return nil
}

func (r *memReminderRepo) ListByRecord(ctx context.Context, recordID attendance.RecordID) ([]*reminder.ScheduledReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*reminder.ScheduledReminder
	for _, item := range r.items {
		if item.AttendanceRecordID == recordID {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memReminderRepo) DeleteByRecord(ctx context.Context, recordID attendance.RecordID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, item := range r.items {
		if item.AttendanceRecordID == recordID {
			delete(r.items, id)
			removed++
		}
	}
	return removed, nil
}

func (r *memReminderRepo) ListPending(ctx context.Context) ([]*reminder.ScheduledReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*reminder.ScheduledReminder
	for _, item := range r.items {
		if item.State == reminder.StateScheduled {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memReminderRepo) MarkDelivered(ctx context.Context, id reminder.ReminderID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return errors.New("not found")
	}
	return item.MarkDelivered(at)
}

func (r *memReminderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type memDispatch struct {
	mu         sync.Mutex
	seq        int
	registered map[reminder.TimerHandle]reminder.FirePayload
}

func newMemDispatch() *memDispatch {
	return &memDispatch{registered: make(map[reminder.TimerHandle]reminder.FirePayload)}
}

func (d *memDispatch) RegisterTimer(ctx context.Context, fireAt time.Time, payload reminder.FirePayload) (reminder.TimerHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	handle := reminder.TimerHandle(fmt.Sprintf("timer-%d", d.seq))
	d.registered[handle] = payload
	return handle, nil
}

func (d *memDispatch) CancelTimer(ctx context.Context, handle reminder.TimerHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.registered, handle)
	return nil
}

type noopSender struct{}

func (noopSender) Send(ctx context.Context, memberID attendance.MemberID, kind reminder.Kind, message string) error {
	return nil
}

type memIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *memIDGen) GenerateID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type memProgress struct {
	mu      sync.Mutex
	applied map[attendance.MemberID][]attendance.DegreeCredit
}

func newMemProgress() *memProgress {
	return &memProgress{applied: make(map[attendance.MemberID][]attendance.DegreeCredit)}
}

func (p *memProgress) ApplyCredits(ctx context.Context, memberID attendance.MemberID, credits []attendance.DegreeCredit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applied[memberID] = append(p.applied[memberID], credits...)
	return nil
}

func (p *memProgress) creditsFor(memberID attendance.MemberID) []attendance.DegreeCredit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applied[memberID]
}

// handlerFixture wires the command handlers with in-memory infrastructure.
type handlerFixture struct {
	records   *memRecordRepo
	catalog   *memCatalog
	guard     *memGuard
	reminders *memReminderRepo
	dispatch  *memDispatch
	progress  *memProgress
	scheduler *reminders.Scheduler
	idGen     *memIDGen
	now       time.Time
}

func newHandlerFixture() *handlerFixture {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	f := &handlerFixture{
		records:   newMemRecordRepo(),
		catalog:   newMemCatalog(),
		guard:     newMemGuard(),
		reminders: newMemReminderRepo(),
		dispatch:  newMemDispatch(),
		progress:  newMemProgress(),
		idGen:     &memIDGen{n: 100},
		now:       now,
	}
	f.scheduler = reminders.NewScheduler(reminders.Config{
		Reminders: f.reminders,
		Records:   f.records,
		Dispatch:  f.dispatch,
		Sender:    noopSender{},
		IDGen:     &memIDGen{},
		Clock:     func() time.Time { return now },
	})
	return f
}

func (f *handlerFixture) addEvent(id attendance.EventID, et attendance.EventType, endsIn time.Duration) {
	f.catalog.events[id] = attendance.EventMetadata{
		ID:       id,
		Title:    "Chapter event",
		Type:     et,
		StartsAt: f.now.Add(-time.Hour),
		EndsAt:   f.now.Add(endsIn),
	}
}

func (f *handlerFixture) checkInHandler(cfg reminder.Config) *CheckInHandler {
	return NewCheckInHandler(
		f.records, f.catalog, f.scheduler, f.guard,
		f.idGen, nil, nil, nil, cfg,
	).WithClock(func() time.Time { return f.now })
}

func (f *handlerFixture) checkOutHandler() *CheckOutHandler {
	return NewCheckOutHandler(
		f.records, f.scheduler, f.guard, NewRecordSerializer(),
		attendance.DefaultPointsTable(), f.progress, nil, nil, nil,
	).WithClock(func() time.Time { return f.now })
}

func (f *handlerFixture) sweepHandler() *SweepMissedHandler {
	return NewSweepMissedHandler(
		f.records, f.catalog, f.scheduler, f.guard,
		NewRecordSerializer(), nil, nil, nil,
	).WithClock(func() time.Time { return f.now })
}
