package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ambulance is the vehicle owned by a driver. One ambulance per driver; its
// availability flag moves in lockstep with the driver's.
type Ambulance struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DriverID        primitive.ObjectID `json:"driver_id" bson:"driver_id" validate:"required"`
	VehicleType     VehicleType        `json:"vehicle_type" bson:"vehicle_type" validate:"required"`
	VehicleName     string             `json:"vehicle_name" bson:"vehicle_name" validate:"required"`
	PlateNumber     string             `json:"plate_number" bson:"plate_number" validate:"required"`
	IsAvailable     bool               `json:"is_available" bson:"is_available" default:"false"`
	CurrentLocation *Location          `json:"current_location" bson:"current_location"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// AmbulanceWithDriver is the registry join of an ambulance and its owning
// driver, as produced by the aggregation in FindAvailableByType.
type AmbulanceWithDriver struct {
	Ambulance `bson:",inline"`
	Driver    Driver `json:"driver" bson:"driver"`
}
