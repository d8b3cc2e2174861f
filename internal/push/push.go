package push

import (
	"context"
	"sync"
	"time"
)

// Event is an advisory row-update notification. Delivery is at-most-once
// with no ordering guarantee; the authoritative state is always the next
// read from the store.
type Event struct {
	Type    string    `json:"type"`
	GroupID string    `json:"groupId"`
	LogID   string    `json:"logId,omitempty"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher is the advisory push channel the core writes to.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Hub is an in-process Publisher fanning events out to per-group
// subscribers. Slow subscribers are skipped rather than blocked on.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan Event]struct{}),
	}
}

// Publish delivers the event to every current subscriber of its group.
func (h *Hub) Publish(_ context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[event.GroupID] {
		select {
		case ch <- event:
		default:
			// subscriber buffer full, drop
		}
	}
}

// Subscribe returns a channel of events for the group and a cancel func
// that must be called when the subscriber goes away.
func (h *Hub) Subscribe(groupID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	if h.subs[groupID] == nil {
		h.subs[groupID] = make(map[chan Event]struct{})
	}
	h.subs[groupID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[groupID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, groupID)
			}
		}
	}

	return ch, cancel
}

var _ Publisher = (*Hub)(nil)
