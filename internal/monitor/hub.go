// Package monitor streams bridge events to operators over WebSocket.
package monitor

import (
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/ashureev/scratchat/internal/domain"
)

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("monitor hub closed")

// Subscriber receives events on a buffered channel.
type Subscriber struct {
	ID     string
	events chan domain.Event
}

// Events returns the subscriber's channel. It is closed on Unsubscribe or
// when the hub closes.
func (s *Subscriber) Events() <-chan domain.Event {
	return s.events
}

// Hub fans bridge events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	queueSize   int
	nextID      uint64
	closed      bool
	dropped     atomic.Uint64
}

// NewHub creates a hub with the given per-subscriber buffer size.
func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		queueSize:   queueSize,
	}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() (*Subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}

	h.nextID++
	sub := &Subscriber{
		ID:     "sub-" + strconv.FormatUint(h.nextID, 10),
		events: make(chan domain.Event, h.queueSize),
	}
	h.subscribers[sub.ID] = sub
	slog.Info("Monitor subscriber registered", "subscriber_id", sub.ID)
	return sub, nil
}

// Unsubscribe removes sub and closes its channel. Stale or repeated calls
// are ignored.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.subscribers[sub.ID]; ok && current == sub {
		delete(h.subscribers, sub.ID)
		close(sub.events)
		slog.Info("Monitor subscriber unregistered", "subscriber_id", sub.ID)
	}
}

// Publish implements bridge.Publisher.
func (h *Hub) Publish(event domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.subscribers {
		select {
		case sub.events <- event:
		default:
			h.dropped.Add(1)
			slog.Debug("Monitor subscriber too slow, event dropped", "subscriber_id", id, "type", event.Type)
		}
	}
}

// Count returns the number of subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close unregisters every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subscribers {
		close(sub.events)
		delete(h.subscribers, id)
	}
	slog.Info("Monitor hub closed")
}
