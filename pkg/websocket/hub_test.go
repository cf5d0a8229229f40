package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"ambulink/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() *logger.Logger {
	log, _ := logger.NewLogger(&logger.Config{
		Level:   logger.ErrorLevel,
		Format:  "text",
		Output:  "stdout",
		AppName: "ambulink-test",
	})
	return log
}

type recordingListener struct {
	connected    []string
	disconnected []string
}

func (l *recordingListener) ClientConnected(ctx context.Context, userID primitive.ObjectID, role, socketID string) {
	l.connected = append(l.connected, socketID)
}

func (l *recordingListener) ClientDisconnected(ctx context.Context, socketID string) {
	l.disconnected = append(l.disconnected, socketID)
}

type recordingHandler struct {
	lat, lng float64
	status   string
	err      error
}

func (h *recordingHandler) HandleLocationUpdate(ctx context.Context, driverID primitive.ObjectID, latitude, longitude float64) error {
	h.lat, h.lng = latitude, longitude
	return h.err
}

func (h *recordingHandler) HandleStatusUpdate(ctx context.Context, driverID primitive.ObjectID, status string) error {
	h.status = status
	return h.err
}

func drain(t *testing.T, client *Client) []Message {
	t.Helper()

	var messages []Message
	for {
		select {
		case raw := <-client.send:
			var msg Message
			require.NoError(t, json.Unmarshal(raw, &msg))
			messages = append(messages, msg)
		default:
			return messages
		}
	}
}

func TestSendToUser(t *testing.T) {
	hub := NewHub(testLogger())
	userID := primitive.NewObjectID()
	client := NewClient(hub, nil, userID, "patient")

	hub.registerClient(client)
	require.True(t, hub.IsConnected(userID))

	require.NoError(t, hub.SendToUser(userID, "request-accepted", map[string]interface{}{"request_id": "abc"}))

	messages := drain(t, client)
	require.Len(t, messages, 2)
	assert.Equal(t, "connected", messages[0].Event)
	assert.Equal(t, "request-accepted", messages[1].Event)
	assert.Equal(t, "abc", messages[1].Data["request_id"])
}

func TestSendToUserOffline(t *testing.T) {
	hub := NewHub(testLogger())

	err := hub.SendToUser(primitive.NewObjectID(), "request-accepted", nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestUnregisterNotifiesListener(t *testing.T) {
	hub := NewHub(testLogger())
	listener := &recordingListener{}
	hub.SetConnectionListener(listener)

	userID := primitive.NewObjectID()
	client := NewClient(hub, nil, userID, "driver")

	hub.registerClient(client)
	require.Equal(t, []string{client.SocketID}, listener.connected)

	hub.unregisterClient(client)
	assert.False(t, hub.IsConnected(userID))
	assert.Equal(t, []string{client.SocketID}, listener.disconnected)

	// A second unregister for the same session is a no-op.
	hub.unregisterClient(client)
	assert.Len(t, listener.disconnected, 1)
}

func TestReconnectReplacesSession(t *testing.T) {
	hub := NewHub(testLogger())
	userID := primitive.NewObjectID()

	first := NewClient(hub, nil, userID, "driver")
	second := NewClient(hub, nil, userID, "driver")

	hub.registerClient(first)
	hub.registerClient(second)

	assert.True(t, hub.IsConnected(userID))
	assert.ErrorIs(t, hub.SendToSocket(first.SocketID, "ping", nil), ErrNotConnected)
	assert.NoError(t, hub.SendToSocket(second.SocketID, "ping", nil))

	// The first session's channel was closed by the replacement.
	_, open := <-first.send
	for open {
		_, open = <-first.send
	}
}

func TestSendToReplacedSessionIsInert(t *testing.T) {
	hub := NewHub(testLogger())
	userID := primitive.NewObjectID()

	first := NewClient(hub, nil, userID, "patient")
	hub.registerClient(first)

	// A sender can look up the session, lose the CPU, and resume after a
	// reconnect replaced it. The stale pointer's channel is closed; the
	// send must fail cleanly, never panic.
	second := NewClient(hub, nil, userID, "patient")
	hub.registerClient(second)

	err := hub.sendToClient(first, Message{Event: "request-accepted"})
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, hub.SendToUser(userID, "request-accepted", nil))
	messages := drain(t, second)
	assert.Equal(t, "request-accepted", messages[len(messages)-1].Event)
}

func TestSendToReplacedSessionIsInertConcurrently(t *testing.T) {
	hub := NewHub(testLogger())
	userID := primitive.NewObjectID()

	first := NewClient(hub, nil, userID, "patient")
	hub.registerClient(first)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				hub.SendToUser(userID, "request-status-update", nil)
			}
		}()
	}

	// The replacement closes the first session's channel while the
	// senders above race through the slow-consumer branch on the same
	// pointer. Finishing without a send-on-closed-channel panic or a
	// double close is the point.
	second := NewClient(hub, nil, userID, "patient")
	hub.registerClient(second)
	wg.Wait()
}

func TestSlowConsumerIsDropped(t *testing.T) {
	hub := NewHub(testLogger())
	userID := primitive.NewObjectID()
	client := NewClient(hub, nil, userID, "patient")
	hub.registerClient(client)

	for len(client.send) < cap(client.send) {
		client.send <- []byte("{}")
	}

	err := hub.SendToUser(userID, "request-accepted", nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, hub.IsConnected(userID))
}

func TestHandleMessageRoutesDriverEvents(t *testing.T) {
	hub := NewHub(testLogger())
	handler := &recordingHandler{}
	hub.SetEventHandler(handler)

	driver := NewClient(hub, nil, primitive.NewObjectID(), "driver")
	hub.registerClient(driver)
	drain(t, driver)

	driver.handleMessage([]byte(`{"event":"update-location","data":{"latitude":23.81,"longitude":90.41}}`))
	assert.Equal(t, 23.81, handler.lat)
	assert.Equal(t, 90.41, handler.lng)

	driver.handleMessage([]byte(`{"event":"update-status","data":{"status":"on_the_way"}}`))
	assert.Equal(t, "on_the_way", handler.status)

	assert.Empty(t, drain(t, driver))
}

func TestHandleMessageErrors(t *testing.T) {
	t.Run("patient may not push driver events", func(t *testing.T) {
		hub := NewHub(testLogger())
		hub.SetEventHandler(&recordingHandler{})

		patient := NewClient(hub, nil, primitive.NewObjectID(), "patient")
		hub.registerClient(patient)
		drain(t, patient)

		patient.handleMessage([]byte(`{"event":"update-status","data":{"status":"arrived"}}`))

		messages := drain(t, patient)
		require.Len(t, messages, 1)
		assert.Equal(t, "error", messages[0].Event)
	})

	t.Run("unknown event", func(t *testing.T) {
		hub := NewHub(testLogger())
		hub.SetEventHandler(&recordingHandler{})

		driver := NewClient(hub, nil, primitive.NewObjectID(), "driver")
		hub.registerClient(driver)
		drain(t, driver)

		driver.handleMessage([]byte(`{"event":"self-destruct"}`))

		messages := drain(t, driver)
		require.Len(t, messages, 1)
		assert.Equal(t, "error", messages[0].Event)
	})

	t.Run("missing coordinates", func(t *testing.T) {
		hub := NewHub(testLogger())
		hub.SetEventHandler(&recordingHandler{})

		driver := NewClient(hub, nil, primitive.NewObjectID(), "driver")
		hub.registerClient(driver)
		drain(t, driver)

		driver.handleMessage([]byte(`{"event":"update-location","data":{"latitude":23.81}}`))

		messages := drain(t, driver)
		require.Len(t, messages, 1)
		assert.Equal(t, "error", messages[0].Event)
	})
}
