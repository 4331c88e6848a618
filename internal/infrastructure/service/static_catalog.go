package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

// StaticEventCatalog is an in-memory attendance.EventCatalog. It serves
// development setups without a database and doubles as a test fixture.
type StaticEventCatalog struct {
	mu     sync.RWMutex
	events map[attendance.EventID]attendance.EventMetadata
}

// NewStaticEventCatalog creates a catalog pre-loaded with the given events.
func NewStaticEventCatalog(events ...attendance.EventMetadata) *StaticEventCatalog {
	c := &StaticEventCatalog{events: make(map[attendance.EventID]attendance.EventMetadata, len(events))}
	for _, e := range events {
		c.events[e.ID] = e
	}
	return c
}

// Put adds or replaces an event.
func (c *StaticEventCatalog) Put(event attendance.EventMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[event.ID] = event
}

// GetEvent returns metadata for an event.
func (c *StaticEventCatalog) GetEvent(ctx context.Context, id attendance.EventID) (*attendance.EventMetadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	event, ok := c.events[id]
	if !ok {
		return nil, shared.ErrEventNotFound
	}
	return &event, nil
}

// ListUpcoming returns events starting within the window, ordered by start time.
func (c *StaticEventCatalog) ListUpcoming(ctx context.Context, from time.Time, within time.Duration) ([]*attendance.EventMetadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	until := from.Add(within)
	var out []*attendance.EventMetadata
	for _, e := range c.events {
		if e.StartsAt.Before(from) || e.StartsAt.After(until) {
			continue
		}
		event := e
		out = append(out, &event)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, nil
}
