package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Client is one authenticated websocket session. Role comes from the
// validated token, never from a client-supplied field.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// closed marks send as closed. Guarded by hub.mu; only the hub
	// closes the channel.
	closed bool

	UserID   primitive.ObjectID
	Role     string
	SocketID string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID primitive.ObjectID, role string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		UserID:   userID,
		Role:     role,
		SocketID: uuid.NewString(),
	}
}

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
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).Warn("websocket read failed")
			}
			break
		}

		c.handleMessage(message)
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
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Flush anything already queued behind this message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// handleMessage routes driver-originated events to the injected handler.
// The sender's authenticated identity is used; any id in the payload is
// ignored.
func (c *Client) handleMessage(raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("invalid message")
		return
	}

	if c.hub.handler == nil {
		c.sendError("channel not ready")
		return
	}

	if c.Role != "driver" {
		c.sendError("event not permitted")
		return
	}

	ctx := context.Background()

	switch msg.Event {
	case "update-location":
		lat, latOK := toFloat(msg.Data["latitude"])
		lng, lngOK := toFloat(msg.Data["longitude"])
		if !latOK || !lngOK {
			c.sendError("latitude and longitude are required")
			return
		}
		if err := c.hub.handler.HandleLocationUpdate(ctx, c.UserID, lat, lng); err != nil {
			c.sendError(err.Error())
		}

	case "update-status":
		status, _ := msg.Data["status"].(string)
		if status == "" {
			c.sendError("status is required")
			return
		}
		if err := c.hub.handler.HandleStatusUpdate(ctx, c.UserID, status); err != nil {
			c.sendError(err.Error())
		}

	default:
		c.sendError("unknown event: " + msg.Event)
	}
}

func (c *Client) sendError(message string) {
	c.hub.sendToClient(c, Message{
		Event:     "error",
		Timestamp: time.Now().Unix(),
		Data:      map[string]interface{}{"message": message},
	})
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
