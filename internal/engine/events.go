package engine

import (
	"sync"
	"time"
)

// EventKind names what happened to the garden.
type EventKind string

const (
	EventCaptured      EventKind = "captured"
	EventProcessing    EventKind = "processing"
	EventDistilled     EventKind = "distilled"
	EventReviewed      EventKind = "reviewed"
	EventArchived      EventKind = "archived"
	EventResurrected   EventKind = "resurrected"
	EventDecayed       EventKind = "decayed"
	EventGaps          EventKind = "gaps"
	EventCleared       EventKind = "cleared"
	EventReplaced      EventKind = "replaced"
	EventPulseStarted  EventKind = "pulse_started"
	EventPulseFinished EventKind = "pulse_finished"
	EventNotify        EventKind = "notify"
)

// Event is published after every state change and for user-facing notices.
// Mutation is true when the persisted collection changed locally; the sync
// follower pushes on those.
type Event struct {
	Kind     EventKind `json:"kind"`
	ItemID   string    `json:"itemId,omitempty"`
	Message  string    `json:"message,omitempty"`
	Mutation bool      `json:"mutation"`
	At       time.Time `json:"at"`
}

// Hub fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber. The returned cancel func closes the
// channel and is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

// Publish delivers ev to every subscriber that has room.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close closes every subscriber channel. Later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
