package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 30 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Dashboards only send control frames; anything bigger is a protocol error.
	maxMessageSize = 512

	clientBufferSize = 64
)

// Client is one dashboard connection. The hub owns the send channel and
// closes it on unregister.
type Client struct {
	UserID       uint
	ConnectionID string

	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		UserID:       userID,
		ConnectionID: uuid.NewString(),
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, clientBufferSize),
		logger:       hub.logger,
	}
}

// enqueue is called by the hub only.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// SnapshotFunc builds the first message of a connection.
type SnapshotFunc func(ctx context.Context) (*Event, error)

// Serve registers the client, writes the snapshot and runs both pumps until
// the connection closes or ctx is cancelled. The snapshot is taken after
// registration; events published meanwhile are queued and delivered after it.
func (c *Client) Serve(ctx context.Context, snapshot SnapshotFunc) {
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
		c.conn.Close()
		return
	case <-ctx.Done():
		c.conn.Close()
		return
	}

	if snapshot != nil {
		if err := c.writeSnapshot(ctx, snapshot); err != nil {
			c.logger.Warn("websocket snapshot failed", zap.String("conn_id", c.ConnectionID), zap.Error(err))
			c.leave()
			return
		}
	}

	go c.writePump()
	c.readPump()
}

// writeSnapshot runs before writePump starts, so it is the only writer.
func (c *Client) writeSnapshot(ctx context.Context, snapshot SnapshotFunc) error {
	ev, err := snapshot(ctx)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *Client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
	c.conn.Close()
}

// readPump discards inbound data and detects dead peers through pong
// deadlines.
func (c *Client) readPump() {
	defer c.leave()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", zap.String("conn_id", c.ConnectionID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("websocket write error", zap.String("conn_id", c.ConnectionID), zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
