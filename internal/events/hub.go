// internal/events/hub.go
package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub fans billing events out to websocket clients, keyed by the
// organization they belong to.
type Hub struct {
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	events     chan *Event

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan *Event, 256),
		logger:     logger,
	}
}

// Publish implements Publisher. Events are dropped when the buffer is
// full rather than blocking a billing operation on slow consumers.
func (h *Hub) Publish(orgID int64, eventType EventType, data interface{}) {
	if h == nil {
		return
	}
	ev := &Event{
		Type:           eventType,
		OrganizationID: orgID,
		Data:           data,
		At:             time.Now().UTC(),
	}
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("event buffer full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.Int64("organization_id", orgID),
		)
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case ev := <-h.events:
			h.dispatch(ev)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.orgID] == nil {
		h.clients[client.orgID] = make(map[*Client]bool)
	}
	h.clients[client.orgID][client] = true

	h.logger.Info("events client connected",
		zap.Int64("organization_id", client.orgID),
		zap.Int("total", h.totalClients()),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.orgID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.close()

			if len(clients) == 0 {
				delete(h.clients, client.orgID)
			}

			h.logger.Info("events client disconnected",
				zap.Int64("organization_id", client.orgID),
				zap.Int("total", h.totalClients()),
			)
		}
	}
}

func (h *Hub) dispatch(ev *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[ev.OrganizationID] {
		client.send(ev)
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.close()
		}
	}
	h.clients = make(map[int64]map[*Client]bool)
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}
