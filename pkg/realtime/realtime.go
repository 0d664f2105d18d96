// Package realtime provides a lightweight in-process publish/subscribe hub
// that fans newly ingested figures out to multiple listeners (WebSocket
// sessions on the firehose endpoint).
//
// Fan-out is best effort: a listener whose buffer is full misses events
// rather than backpressuring ingestion. There is no persistence or replay;
// the stream is ephemeral. Index updates are never published here, only
// catalog ingestion events.
package realtime

import (
	"sync"
	"time"
)

// FigureEvent describes one figure written to the catalog by a scraping
// source or an import.
type FigureEvent struct {
	FigureID     string    `json:"figure_id"`
	OwnerID      string    `json:"owner_id"`
	Source       string    `json:"source"`
	Name         string    `json:"name"`
	Manufacturer string    `json:"manufacturer"`
	CreatedAt    time.Time `json:"created_at"`
}

// Hub is a concurrency-safe fan-out dispatcher. Each listener receives
// events on its own buffered channel; a full buffer drops the event for
// that listener only.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]chan FigureEvent
	nextID    uint64
	bufSize   int
}

// NewHub constructs a hub with the given per-listener buffer size
// (default 32 when bufSize <= 0).
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &Hub{
		listeners: make(map[uint64]chan FigureEvent),
		bufSize:   bufSize,
	}
}

// Register adds a listener and returns its id and receive channel. Callers
// must Unregister the id when done.
func (h *Hub) Register() (uint64, <-chan FigureEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan FigureEvent, h.bufSize)
	h.listeners[id] = ch
	return id, ch
}

// Unregister removes a listener and closes its channel. Unknown ids are
// ignored; calling it twice is safe.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// Publish delivers the event to every listener that has buffer space.
func (h *Hub) Publish(ev FigureEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.listeners {
		select {
		case ch <- ev:
		default:
			// Listener buffer full; drop for this listener only.
		}
	}
}

// ListenerCount reports the number of registered listeners.
func (h *Hub) ListenerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
