// internal/events/client.go
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Client is a single websocket connection listening for billing
// events on behalf of one organization.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	out   chan []byte
	orgID int64

	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, orgID int64) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		out:   make(chan []byte, 64),
		orgID: orgID,
	}
}

// Serve registers the client and runs its pumps. It blocks until the
// connection drops.
func (c *Client) Serve() {
	c.hub.register <- c
	go c.writePump()
	c.readPump()
}

func (c *Client) send(ev *Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		c.hub.logger.Error("failed to marshal event", zap.Error(err))
		return
	}
	select {
	case c.out <- payload:
	default:
		// Slow consumer, drop the event for this client.
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.out)
	})
}

// readPump drains the connection so pongs and close frames are
// processed. Clients never send application messages.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.Error(err))
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
		case message, ok := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
