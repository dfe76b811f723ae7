// Package bus fans dashboard state changes out to websocket viewers and the
// MQTT publisher.
package bus

import (
	"sync"
	"time"

	"pimonitor/internal/logger"
)

// EventType identifies which cell changed.
type EventType string

const (
	EventReading    EventType = "reading"
	EventDetection  EventType = "detection"
	EventStream     EventType = "stream"
	EventAccessLogs EventType = "access_logs"
	EventVisibility EventType = "visibility"
	EventExpansion  EventType = "expansion"
)

const defaultBuffer = 64

// Event is a state change. Data holds the changed cell's value.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Bus is a non-blocking publish/subscribe bus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
	closed      bool
	log         *logger.Logger
}

// New creates an empty bus.
func New(log *logger.Logger) *Bus {
	if log == nil {
		log = logger.Nop()
	}
	return &Bus{
		subscribers: make(map[int]chan Event),
		log:         log,
	}
}

// Publish delivers evt to every subscriber; a full subscriber misses the event.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			b.log.Warnw("bus_subscriber_full", "subscriber_id", id, "event_type", evt.Type)
		}
	}
}

// Subscribe returns an event channel and an unsubscribe func that closes it.
// After Close the channel is returned already closed.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(ch)
		}
	}
	return ch, unsub
}

// Close closes every subscriber channel so their readers return. Publish
// becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
	b.log.Infow("bus_closed")
}

// Len returns the number of active subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
