package services

import (
	"ambulink/pkg/logger"
	ws "ambulink/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Real-time event names pushed to clients.
const (
	EventNewEmergencyRequest = "new-emergency-request"
	EventRequestAccepted     = "request-accepted"
	EventRequestStatusUpdate = "request-status-update"
	EventDriverLocation      = "driver-location-update"
	EventDriverStatus        = "driver-status-update"
)

// Notifier delivers fire-and-forget events to a user's live session.
// Failures never propagate: a state change must succeed even when nobody is
// online to hear about it.
type Notifier interface {
	NotifyUser(userID primitive.ObjectID, event string, data map[string]interface{})
	IsOnline(userID primitive.ObjectID) bool
}

type notifierService struct {
	hub *ws.Hub
	log *logger.Logger
}

func NewNotifierService(hub *ws.Hub, log *logger.Logger) Notifier {
	return &notifierService{
		hub: hub,
		log: log,
	}
}

func (n *notifierService) NotifyUser(userID primitive.ObjectID, event string, data map[string]interface{}) {
	if n.hub == nil {
		n.log.WithField("event", event).Warn("transport not initialized, dropping notification")
		return
	}

	if err := n.hub.SendToUser(userID, event, data); err != nil {
		n.log.WithFields(map[string]interface{}{
			"user_id": userID.Hex(),
			"event":   event,
			"error":   err.Error(),
		}).Warn("failed to deliver notification")
	}
}

func (n *notifierService) IsOnline(userID primitive.ObjectID) bool {
	return n.hub != nil && n.hub.IsConnected(userID)
}
