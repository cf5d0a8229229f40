package interfaces

import (
	"context"

	"ambulink/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverRepository interface {
	Create(ctx context.Context, driver *models.Driver) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)

	// Availability and assignment
	SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error
	SetCurrentRequest(ctx context.Context, id primitive.ObjectID, requestID *primitive.ObjectID) error

	// Live-connection bookkeeping. ClearConnectionBySocketID is a reverse
	// lookup: at disconnect only the socket id is known.
	SetConnection(ctx context.Context, id primitive.ObjectID, socketID string) error
	ClearConnectionBySocketID(ctx context.Context, socketID string) error

	UpdateLocation(ctx context.Context, id primitive.ObjectID, location models.Location) error
}
