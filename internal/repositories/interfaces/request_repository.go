package interfaces

import (
	"context"

	"ambulink/internal/models"
	"ambulink/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RequestRepository interface {
	// Basic operations
	Create(ctx context.Context, request *models.EmergencyRequest) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error)
	GetByPatient(ctx context.Context, patientID primitive.ObjectID, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error)

	// Accept atomically assigns a driver and ambulance to a pending request.
	// The update matches only while status is still "pending"; it returns
	// ErrRequestTaken when the request exists but is no longer pending, so
	// concurrent accepts resolve to exactly one winner.
	Accept(ctx context.Context, id, driverID, ambulanceID primitive.ObjectID) (*models.EmergencyRequest, error)

	// UpdateStatus writes the new status and its transition timestamp.
	// Transition legality is the dispatch service's responsibility.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RequestStatus) error

	UpdatePaymentStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus) error
}
