// Package sse fans assistant notifications out to browser event streams.
package sse

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Event is one message on the stream
type Event struct {
	ID   uint64      `json:"id"`
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// Hub broadcasts events to every connected client. Publish never blocks:
// a client whose buffer is full misses events and is expected to re-read
// the state it cares about.
type Hub struct {
	buffer int
	logger *slog.Logger
	seq    atomic.Uint64

	mu      sync.Mutex
	clients map[string]chan Event
}

// NewHub creates a hub
func NewHub(cfg *Config, logger *slog.Logger) *Hub {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		buffer:  cfg.ClientBuffer,
		logger:  logger,
		clients: make(map[string]chan Event),
	}
}

// Publish sends an event to all clients and returns its sequence number
func (h *Hub) Publish(name string, data interface{}) uint64 {
	ev := Event{ID: h.seq.Add(1), Name: name, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("event dropped for slow client", "client_id", id, "event", name, "seq", ev.ID)
		}
	}
	return ev.ID
}

// Subscribe registers a client. The returned function unregisters it and
// closes the channel.
func (h *Hub) Subscribe(clientID string) (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	h.clients[clientID] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, clientID)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
