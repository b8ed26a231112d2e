package notify

import (
	"log/slog"
	"sync"

	"github.com/jmvega/xlsx-loader/internal/domain"
)

// Listener receives broadcast events. Send is called from whichever goroutine
// broadcasts; implementations must be safe for that and should bound how long
// a delivery may take. A non-nil error drops the listener from the hub.
type Listener interface {
	Send(event domain.Event) error
}

// Hub is the owned registry of live subscribers. It is created at process
// start and passed to whatever needs to broadcast; there is no package-level
// instance.
type Hub struct {
	mu        sync.Mutex
	listeners map[Listener]struct{}
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[Listener]struct{})}
}

func (h *Hub) Subscribe(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners[l] = struct{}{}
}

func (h *Hub) Unsubscribe(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listeners, l)
}

// Len reports the current subscriber count.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Broadcast delivers the event to every subscriber. Delivery is best-effort:
// a failing listener is dropped from the registry and the remaining listeners
// still receive the event. Holding the lock for the whole pass keeps events
// in emission order for each individual listener.
func (h *Hub) Broadcast(event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var failed []Listener
	for l := range h.listeners {
		if err := l.Send(event); err != nil {
			slog.Debug("dropping notification listener", "event", event.Type, "error", err)
			failed = append(failed, l)
		}
	}
	for _, l := range failed {
		delete(h.listeners, l)
	}
}
