package websocket

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Hub fans events out to every connected dashboard. All client set changes
// happen on the Run goroutine.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		logger:     logger.Named("ws"),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("websocket hub started")
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug("client registered",
				zap.Uint("user_id", c.UserID), zap.String("conn_id", c.ConnectionID), zap.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.broadcast:
			for c := range h.clients {
				if !c.enqueue(msg) {
					h.logger.Warn("client send buffer full, dropping connection",
						zap.Uint("user_id", c.UserID), zap.String("conn_id", c.ConnectionID))
					h.remove(c)
				}
			}

		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				h.remove(c)
			}
			h.logger.Info("websocket hub stopped")
			return
		}
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Debug("client unregistered", zap.Uint("user_id", c.UserID), zap.String("conn_id", c.ConnectionID))
}

// Publish broadcasts an event to all clients. It never blocks the caller;
// when the broadcast queue is full the event is dropped.
func (h *Hub) Publish(eventType string, data interface{}) {
	msg, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error("marshal websocket event", zap.String("type", eventType), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, event dropped", zap.String("type", eventType))
	}
}
