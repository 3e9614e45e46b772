package events

import (
	"sync"
	"time"
)

type EventType string

const (
	EventMigrationStarted   EventType = "migration_started"
	EventMigrationSucceeded EventType = "migration_succeeded"
	EventMigrationFailed    EventType = "migration_failed"
	EventBatchCompleted     EventType = "batch_completed"
	EventHealthChanged      EventType = "health_changed"
)

// Event is one migration-lifecycle notification pushed to connected
// admin UIs.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Hub fans events out to websocket subscribers. Slow subscribers are
// dropped rather than allowed to block publishers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Event]bool
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan Event]bool),
	}
}

// Subscribe registers a new listener; the caller must call the returned
// cancel func when the connection goes away.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	h.mu.Lock()
	h.subscribers[ch] = true
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if h.subscribers[ch] {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Broadcast delivers the event to every subscriber without blocking.
func (h *Hub) Broadcast(eventType EventType, payload interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber buffer full; skip this event for them.
		}
	}
}
