package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/nearmi/localhunt-backend/pkg/logger"
)

// Session timing. The ping interval stays under the pong deadline so an idle
// but healthy peer is never dropped.
const (
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingInterval   = 54 * time.Second
	maxClientFrame = 4 * 1024
)

// Conn wraps the upgraded gorilla connection held by a Client.
type Conn struct {
	*websocket.Conn
}

func (c *Conn) extendRead() error {
	return c.SetReadDeadline(time.Now().Add(pongTimeout))
}

func (c *Conn) write(kind int, data []byte) error {
	if err := c.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.WriteMessage(kind, data)
}

// ReadPump hands each client frame to the hub until the peer goes away, then
// unregisters the session.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxClientFrame)
	_ = c.Conn.extendRead()
	c.Conn.SetPongHandler(func(string) error { return c.Conn.extendRead() })

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("Chat session closed unexpectedly", map[string]interface{}{
					"user_id": c.UserID,
					"error":   err.Error(),
				})
			}
			return
		}
		c.Hub.HandleClientMessage(c, frame)
	}
}

// WritePump delivers queued events, one JSON document per text frame.
func (c *Client) WritePump() {
	pings := time.NewTicker(pingInterval)
	defer func() {
		pings.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case <-pings.C:
			if err := c.Conn.write(websocket.PingMessage, nil); err != nil {
				return
			}

		case event, open := <-c.Send:
			if !open {
				// hub dropped the session
				_ = c.Conn.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.write(websocket.TextMessage, event); err != nil {
				logger.Error("Chat event delivery failed", err, map[string]interface{}{
					"user_id": c.UserID,
				})
				return
			}
		}
	}
}
