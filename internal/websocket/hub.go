package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/xelth-com/eckmarket/internal/events"
)

// Hub maintains the set of progress listeners and fans events out to them
type Hub struct {
	// Registered clients map: ClientID -> Client
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	quit       chan struct{}

	mu sync.RWMutex
}

type outbound struct {
	tenantID uint
	payload  []byte
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 256),
		quit:       make(chan struct{}),
		clients:    make(map[string]*Client),
	}
}

// Run starts the hub's main loop; it returns after Stop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			slog.Debug("Progress listener connected", "client_id", client.ID, "tenant_id", client.TenantID())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				slog.Debug("Progress listener disconnected", "client_id", client.ID)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				if !client.wants(msg.tenantID) {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// slow listener, drop the event for it
				}
			}
			h.mu.RUnlock()

		case <-h.quit:
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop terminates Run and disconnects every listener
func (h *Hub) Stop() {
	close(h.quit)
}

// Publish implements events.Publisher. Events are dropped when the hub is saturated.
func (h *Hub) Publish(e events.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		slog.Error("Marshal progress event", "type", e.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- outbound{tenantID: e.TenantID, payload: payload}:
	default:
		slog.Warn("Progress hub saturated, event dropped", "type", e.Type, "run_id", e.RunID)
	}
}

// ClientCount returns the number of connected listeners
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var _ events.Publisher = (*Hub)(nil)
