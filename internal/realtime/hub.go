package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/pairprep/backend/internal/metrics"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Session lifecycle events.
const (
	EventSessionCreated = "session.created"
	EventSessionJoined  = "session.joined"
	EventSessionEnded   = "session.ended"
)

// EventBus is the cross-instance transport for session events.
type EventBus interface {
	PublishEvent(ctx context.Context, event string, payload []byte) error
	SubscribeEvents(ctx context.Context, handler func(event string, payload []byte)) error
}

// Hub keeps the set of connected lobby clients and fans session events out to them.
// With a bus, events are published to Redis and delivered to local clients by the
// subscription, so every instance broadcasts each event exactly once.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
	logger  *zap.Logger
	bus     EventBus
}

// NewHub creates a new WebSocket hub. bus may be nil for a single instance.
func NewHub(logger *zap.Logger, bus EventBus) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
		bus:     bus,
	}
}

// Run subscribes to the bus and blocks until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	if h.bus != nil {
		err := h.bus.SubscribeEvents(ctx, func(event string, payload []byte) {
			h.Broadcast(event, json.RawMessage(payload))
		})
		if err != nil {
			return err
		}
	}
	<-ctx.Done()
	return nil
}

// Register adds a client to the lobby.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	metrics.EventSubscribers.Inc()
	h.logger.Debug("event client connected", zap.String("client_id", c.ID), zap.String("user_id", c.UserID))
}

// Unregister removes a client from the lobby.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	delete(h.clients, c.ID)
	h.mu.Unlock()
	if ok {
		metrics.EventSubscribers.Dec()
	}
	h.logger.Debug("event client disconnected", zap.String("client_id", c.ID))
}

// Broadcast sends a message to all local clients.
func (h *Hub) Broadcast(event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish delivers a session event to every connected client on every instance.
func (h *Hub) Publish(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if h.bus != nil {
		return h.bus.PublishEvent(ctx, event, data)
	}
	h.Broadcast(event, json.RawMessage(data))
	return nil
}

// ClientCount returns the number of connected local clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
