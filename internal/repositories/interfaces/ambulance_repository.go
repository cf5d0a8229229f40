package interfaces

import (
	"context"

	"ambulink/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AmbulanceRepository interface {
	Create(ctx context.Context, ambulance *models.Ambulance) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error)

	// FindAvailableByType returns all available ambulances of the given type
	// joined with their owning driver.
	FindAvailableByType(ctx context.Context, vehicleType models.VehicleType) ([]*models.AmbulanceWithDriver, error)

	SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error
	SetAvailabilityByDriver(ctx context.Context, driverID primitive.ObjectID, available bool) error
	UpdateLocation(ctx context.Context, id primitive.ObjectID, location models.Location) error
	UpdateLocationByDriver(ctx context.Context, driverID primitive.ObjectID, location models.Location) error
}
