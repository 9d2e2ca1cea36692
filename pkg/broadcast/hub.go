package broadcast

import (
	"encoding/json"
	"log"
	"sync"
)

// Event is a post-change notification fanned out to connected clients.
// Create and update carry the post payload; delete carries the id only.
type Event struct {
	Action string      `json:"action"`
	Post   interface{} `json:"post,omitempty"`
	PostID string      `json:"postId,omitempty"`
}

// envelope is the wire frame: clients listen for the "posts" event.
type envelope struct {
	Event string `json:"event"`
	Data  Event  `json:"data"`
}

const subscriberBuffer = 16

// Hub is a process-wide publish/subscribe fan-out. It is constructed
// once by the composition root and injected into whoever publishes;
// there is no global instance.
//
// Delivery is best-effort: publishing with zero subscribers is a no-op,
// late subscribers never see earlier events, and a subscriber whose
// buffer is full misses the event rather than blocking the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint64]chan []byte
	next uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[uint64]chan []byte),
	}
}

// Subscribe registers a new listener. The returned cancel func must be
// called when the listener goes away; it closes the channel.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan []byte, subscriberBuffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish fans the event out to every current subscriber. Events from
// a single caller are delivered to each subscriber in call order.
func (h *Hub) Publish(event Event) {
	body, err := json.Marshal(envelope{Event: "posts", Data: event})
	if err != nil {
		log.Printf("Failed to marshal broadcast event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- body:
		default:
			// Subscriber is not keeping up; it misses this event.
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
