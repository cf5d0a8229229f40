package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"ambulink/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotConnected is returned when a push targets a user with no live
// connection. Delivery is best-effort; callers log and move on.
var ErrNotConnected = errors.New("user has no live connection")

// Message is the wire format for both directions of the channel.
type Message struct {
	Event     string                 `json:"event"`
	Timestamp int64                  `json:"timestamp,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// ConnectionListener is notified when an authenticated client joins or its
// transport drops. Disconnect only carries the socket id, since that is all
// the transport layer knows at that point.
type ConnectionListener interface {
	ClientConnected(ctx context.Context, userID primitive.ObjectID, role, socketID string)
	ClientDisconnected(ctx context.Context, socketID string)
}

// EventHandler receives driver-originated events read off the channel.
type EventHandler interface {
	HandleLocationUpdate(ctx context.Context, driverID primitive.ObjectID, latitude, longitude float64) error
	HandleStatusUpdate(ctx context.Context, driverID primitive.ObjectID, status string) error
}

// Hub is the connection registry: one live client per user id, constructed
// explicitly and passed by reference rather than held as package state.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client             // socket id -> client
	users   map[primitive.ObjectID]*Client // user id -> current client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	listener ConnectionListener
	handler  EventHandler
	log      *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		users:      make(map[primitive.ObjectID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// SetConnectionListener and SetEventHandler are called once during wiring,
// before Run. Setters break the construction cycle between the hub and the
// services that both use it and feed it.
func (h *Hub) SetConnectionListener(l ConnectionListener) { h.listener = l }
func (h *Hub) SetEventHandler(eh EventHandler)            { h.handler = eh }

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Shutdown stops the run loop and closes every live connection.
func (h *Hub) Shutdown() {
	close(h.done)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	// A reconnect replaces the previous session for the same user.
	if prev, ok := h.users[client.UserID]; ok && prev.SocketID != client.SocketID {
		h.dropLocked(prev)
	}
	h.clients[client.SocketID] = client
	h.users[client.UserID] = client
	h.mu.Unlock()

	h.log.WithFields(map[string]interface{}{
		"user_id":   client.UserID.Hex(),
		"role":      client.Role,
		"socket_id": client.SocketID,
	}).Info("client connected")

	if h.listener != nil {
		h.listener.ClientConnected(context.Background(), client.UserID, client.Role, client.SocketID)
	}

	h.sendToClient(client, Message{
		Event:     "connected",
		Timestamp: time.Now().Unix(),
		Data:      map[string]interface{}{"socket_id": client.SocketID},
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, removed := h.clients[client.SocketID]
	if removed {
		h.dropLocked(client)
	}
	h.mu.Unlock()

	if !removed {
		return
	}

	h.log.WithFields(map[string]interface{}{
		"user_id":   client.UserID.Hex(),
		"socket_id": client.SocketID,
	}).Info("client disconnected")

	if h.listener != nil {
		h.listener.ClientDisconnected(context.Background(), client.SocketID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.closed = true
		close(client.send)
	}
	h.clients = make(map[string]*Client)
	h.users = make(map[primitive.ObjectID]*Client)
}

// SendToUser pushes an event to a user's live connection, if any. The send
// is fire-and-forget: a full buffer drops the connection rather than block
// the caller.
func (h *Hub) SendToUser(userID primitive.ObjectID, event string, data map[string]interface{}) error {
	h.mu.RLock()
	client, ok := h.users[userID]
	h.mu.RUnlock()

	if !ok {
		return ErrNotConnected
	}

	return h.sendToClient(client, Message{
		Event:     event,
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
}

// SendToSocket pushes an event to a specific connection id.
func (h *Hub) SendToSocket(socketID, event string, data map[string]interface{}) error {
	h.mu.RLock()
	client, ok := h.clients[socketID]
	h.mu.RUnlock()

	if !ok {
		return ErrNotConnected
	}

	return h.sendToClient(client, Message{
		Event:     event,
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
}

// IsConnected reports whether the user currently has a live connection.
func (h *Hub) IsConnected(userID primitive.ObjectID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.users[userID]
	return ok
}

func (h *Hub) sendToClient(client *Client, message Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// The session may have been replaced or dropped after the caller
	// looked it up; never send on a closed channel.
	if client.closed {
		return ErrNotConnected
	}

	select {
	case client.send <- data:
		return nil
	default:
		// Slow consumer: drop the session, the read pump will clean up.
		h.dropLocked(client)
		return ErrNotConnected
	}
}

// dropLocked removes the session from the maps and closes its send channel.
// Callers must hold h.mu. The closed flag makes the close idempotent and
// keeps later sends off the dead channel.
func (h *Hub) dropLocked(client *Client) {
	delete(h.clients, client.SocketID)
	if current, ok := h.users[client.UserID]; ok && current.SocketID == client.SocketID {
		delete(h.users, client.UserID)
	}
	if !client.closed {
		client.closed = true
		close(client.send)
	}
}
