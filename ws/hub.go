// Package ws fans queue change events out to connected websocket viewers.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/hospiq/queue-backend/internal/models"
)

// Hub owns the set of connected observers. Add, Remove, and Publish operate
// on a lock-protected set so removing a dead observer concurrently with a
// broadcast cannot corrupt iteration. Publish is called while the queue
// engine holds its write lock; every send is non-blocking, so a slow or dead
// observer is dropped rather than ever stalling a registration.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	log     *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		log:     log,
	}
}

func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.log.Debug("observer registered", "client_id", c.id, "observers", len(h.clients))
}

// Remove drops the client and closes its send channel. Safe to call more
// than once and concurrently with Publish.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// Publish marshals the event once and hands it to every connected observer.
// A client whose send buffer is full is disconnected on the spot; delivery
// failure never propagates to the publisher.
func (h *Hub) Publish(evt models.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("failed to marshal broadcast event", "type", evt.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("observer send buffer full, dropping client", "client_id", c.id)
			h.removeLocked(c)
		}
	}
}

// Count reports the number of connected observers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.closeSend()
	h.log.Debug("observer unregistered", "client_id", c.id, "observers", len(h.clients))
}
