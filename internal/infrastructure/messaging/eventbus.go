// Package messaging implements event bus functionality for the Chapter
// Attendance Hub. It provides an in-memory bus for single-instance
// deployments and a Redis Pub/Sub bridge for distributed ones.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

var (
	// ErrEventBusClosed is returned when publishing on a closed bus.
	ErrEventBusClosed = errors.New("messaging: event bus is closed")
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus is a simple in-memory implementation of shared.EventBus.
// Suitable for single-instance deployments and testing.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	asyncMode   bool
	workerPool  chan struct{}
	logger      *slog.Logger
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

// InMemoryEventBusConfig contains configuration for InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode enables asynchronous event processing.
	AsyncMode bool

	// WorkerPoolSize is the number of concurrent workers for async processing.
	WorkerPoolSize int

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultInMemoryEventBusConfig returns sensible defaults.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}

	return &InMemoryEventBus{
		handlers:    make(map[shared.EventType][]shared.EventHandler),
		allHandlers: make([]shared.EventHandler, 0),
		asyncMode:   config.AsyncMode,
		workerPool:  make(chan struct{}, config.WorkerPoolSize),
		logger:      config.Logger,
		closeCh:     make(chan struct{}),
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("subscribed handler", "event_type", eventType)

	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	b.logger.Debug("subscribed global handler")

	return nil
}

// Publish sends an event to all subscribed handlers.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}

	handlers := make([]shared.EventHandler, 0)
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("no handlers for event", "event_type", event.EventType())
		return nil
	}

	if b.asyncMode {
		for _, handler := range handlers {
			b.executeAsync(event, handler)
		}
	} else {
		for _, handler := range handlers {
			if err := handler(event); err != nil {
				b.logger.Error("handler error", "event_type", event.EventType(), "error", err)
			}
		}
	}

	return nil
}

// executeAsync executes a handler asynchronously using the worker pool.
func (b *InMemoryEventBus) executeAsync(event shared.Event, handler shared.EventHandler) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		select {
		case b.workerPool <- struct{}{}:
			defer func() { <-b.workerPool }()
		case <-b.closeCh:
			return
		}

		start := time.Now()
		if err := handler(event); err != nil {
			b.logger.Error("async handler error",
				"event_type", event.EventType(),
				"duration", time.Since(start),
				"error", err,
			)
		}
	}()
}

// Close gracefully shuts down the event bus.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	// Wait for pending handlers to complete
	b.wg.Wait()

	b.logger.Info("event bus closed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// RedisEventBus bridges domain events over Redis Pub/Sub so multiple
// instances share them. Local delivery is delegated to an embedded
// in-memory bus; remote events are reconstructed from their envelope.
type RedisEventBus struct {
	client  *goredis.Client
	local   *InMemoryEventBus
	channel string
	logger  *slog.Logger
	cancel  context.CancelFunc
	closed  bool
	mu      sync.Mutex
	wg      sync.WaitGroup
}

// RedisEventBusConfig contains configuration for RedisEventBus.
type RedisEventBusConfig struct {
	// Client is the Redis client to use for pub/sub.
	Client *goredis.Client

	// Channel is the pub/sub channel name.
	Channel string

	// Logger for structured logging.
	Logger *slog.Logger
}

// NewRedisEventBus creates a Redis-backed event bus and starts its
// subscription loop.
func NewRedisEventBus(config RedisEventBusConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("messaging: redis client is required")
	}
	if config.Channel == "" {
		config.Channel = "pubsub:attendance.events"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &RedisEventBus{
		client:  config.Client,
		local:   NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, Logger: config.Logger}),
		channel: config.Channel,
		logger:  config.Logger,
		cancel:  cancel,
	}

	sub := config.Client.Subscribe(ctx, config.Channel)
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("messaging: failed to subscribe to %s: %w", config.Channel, err)
	}

	bus.wg.Add(1)
	go bus.subscriptionLoop(ctx, sub)

	return bus, nil
}

// Subscribe registers a handler for a specific event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.local.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler for all events.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.local.SubscribeAll(handler)
}

// Publish delivers the event locally and broadcasts it to other instances.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if err := b.local.Publish(event); err != nil {
		return err
	}

	envelope := eventEnvelope{
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("messaging: failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		// Local delivery already succeeded; a broadcast failure must not
		// fail the caller.
		b.logger.Warn("failed to broadcast event", "event_type", event.EventType(), "error", err)
	}
	return nil
}

func (b *RedisEventBus) subscriptionLoop(ctx context.Context, sub *goredis.PubSub) {
	defer b.wg.Done()
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handleMessage(msg.Payload)
		}
	}
}

func (b *RedisEventBus) handleMessage(payload string) {
	var envelope eventEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		b.logger.Error("failed to decode event envelope", "error", err)
		return
	}

	evt := &reconstructedEvent{envelope: envelope}
	if err := b.local.Publish(evt); err != nil {
		b.logger.Error("failed to deliver remote event", "event_type", envelope.Type, "error", err)
	}
}

// Close stops the subscription loop and shuts down local delivery.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	return b.local.Close()
}

// eventEnvelope is the wire format for events crossing instances.
type eventEnvelope struct {
	Type        shared.EventType       `json:"type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// reconstructedEvent is a remote event rebuilt from its envelope.
type reconstructedEvent struct {
	envelope eventEnvelope
}

func (e *reconstructedEvent) EventType() shared.EventType {
	return e.envelope.Type
}

func (e *reconstructedEvent) AggregateID() string {
	return e.envelope.AggregateID
}

func (e *reconstructedEvent) OccurredAt() time.Time {
	return e.envelope.OccurredAt
}

func (e *reconstructedEvent) Payload() map[string]interface{} {
	return e.envelope.Payload
}
