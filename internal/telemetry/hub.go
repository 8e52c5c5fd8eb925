package telemetry

import (
	"sync"
	"time"
)

// AllSecrets subscribes a watch client to every change regardless of name.
const AllSecrets = "*"

// Operations carried by a ChangeEvent.
const (
	OpPut    = "put"
	OpDelete = "delete"
	OpRotate = "rotate"
)

// ChangeEvent describes one mutation of the secret store. Payloads are
// never part of an event; watchers re-read through the API if they
// need the value.
type ChangeEvent struct {
	Op      string    `json:"op"`
	Name    string    `json:"name"`
	Version int       `json:"version,omitempty"`
	At      time.Time `json:"at"`
}

// Hub fans secret change events out to watch clients
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string][]chan ChangeEvent // secret name -> list of client channels
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string][]chan ChangeEvent),
	}
}

// Subscribe adds a new watch client for the given secret name, or for
// every secret when name is AllSecrets
func (h *Hub) Subscribe(name string) chan ChangeEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan ChangeEvent, 64) // Buffer to prevent slow clients from blocking the writers
	h.subscribers[name] = append(h.subscribers[name], ch)
	return ch
}

// Unsubscribe removes a client channel
func (h *Hub) Unsubscribe(name string, ch chan ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[name]
	for i, sub := range subs {
		if sub == ch {
			h.subscribers[name] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
}

// Broadcast sends an event to the listeners of its name plus every
// wildcard listener. Store-wide events (Name == AllSecrets) reach the
// wildcard listeners exactly once.
func (h *Hub) Broadcast(event ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if event.Name != AllSecrets {
		h.deliver(h.subscribers[event.Name], event)
	}
	h.deliver(h.subscribers[AllSecrets], event)
}

func (h *Hub) deliver(subs []chan ChangeEvent, event ChangeEvent) {
	for _, ch := range subs {
		select {
		case ch <- event:
		default: // Drop event if buffer is full to preserve stability
		}
	}
}
