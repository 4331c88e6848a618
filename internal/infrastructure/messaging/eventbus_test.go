package messaging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

func newSyncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
}

func TestPublishToTypedSubscriber(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var received []shared.Event
	err := bus.Subscribe(shared.EventMemberCheckedIn, func(e shared.Event) error {
		received = append(received, e)
		return nil
	})
	assert.NoError(t, err)

	evt := shared.NewMemberCheckedInEvent("rec-1", "member-1", "event-1", "meeting")
	assert.NoError(t, bus.Publish(evt))

	assert.Len(t, received, 1)
	assert.Equal(t, shared.EventMemberCheckedIn, received[0].EventType())
	assert.Equal(t, "rec-1", received[0].AggregateID())
}

func TestPublishSkipsOtherEventTypes(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	calls := 0
	assert.NoError(t, bus.Subscribe(shared.EventMemberCheckedOut, func(e shared.Event) error {
		calls++
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewMemberCheckedInEvent("rec-1", "member-1", "event-1", "meeting")))
	assert.Zero(t, calls)
}

func TestSubscribeAllSeesEverything(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var types []shared.EventType
	assert.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		types = append(types, e.EventType())
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewMemberCheckedInEvent("rec-1", "member-1", "event-1", "meeting")))
	assert.NoError(t, bus.Publish(shared.NewRemindersScheduledEvent("rec-1", "member-1", 5)))
	assert.NoError(t, bus.Publish(shared.NewSweepCompletedEvent(3, 2*time.Hour)))

	assert.Equal(t, []shared.EventType{
		shared.EventMemberCheckedIn,
		shared.EventRemindersScheduled,
		shared.EventSweepCompleted,
	}, types)
}

func TestHandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	second := 0
	assert.NoError(t, bus.Subscribe(shared.EventMemberCheckedIn, func(e shared.Event) error {
		return errors.New("handler blew up")
	}))
	assert.NoError(t, bus.Subscribe(shared.EventMemberCheckedIn, func(e shared.Event) error {
		second++
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewMemberCheckedInEvent("rec-1", "member-1", "event-1", "meeting")))
	assert.Equal(t, 1, second)
}

func TestAsyncPublishDeliversThroughWorkerPool(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 4})
	defer bus.Close()

	var mu sync.Mutex
	received := 0
	assert.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		mu.Lock()
		received++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 20; i++ {
		assert.NoError(t, bus.Publish(shared.NewRemindersCancelledEvent("rec-1", i)))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received == 20
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClosedBusRejectsPublish(t *testing.T) {
	bus := newSyncBus()
	assert.NoError(t, bus.Close())

	err := bus.Publish(shared.NewMemberCheckedInEvent("rec-1", "member-1", "event-1", "meeting"))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventMemberCheckedIn, func(e shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)

	// Closing twice is a no-op.
	assert.NoError(t, bus.Close())
}

func TestPublishNilEvent(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	assert.Error(t, bus.Publish(nil))
}

func TestEventEnvelopeRoundTrip(t *testing.T) {
	evt := shared.NewMemberCheckedOutEvent("rec-1", "member-1", "event-1", 95, 12, 6, true)

	envelope := eventEnvelope{
		Type:        evt.EventType(),
		AggregateID: evt.AggregateID(),
		OccurredAt:  evt.OccurredAt(),
		Payload:     evt.Payload(),
	}

	rebuilt := &reconstructedEvent{envelope: envelope}
	assert.Equal(t, shared.EventMemberCheckedOut, rebuilt.EventType())
	assert.Equal(t, "rec-1", rebuilt.AggregateID())
	assert.Equal(t, "member-1", rebuilt.Payload()["member_id"])
	assert.Equal(t, true, rebuilt.Payload()["bonus_applied"])
}
