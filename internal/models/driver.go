package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Driver struct {
	ID               primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Name             string              `json:"name" bson:"name" validate:"required"`
	Phone            string              `json:"phone" bson:"phone" validate:"required"`
	Email            string              `json:"email" bson:"email" validate:"required,email"`
	Password         string              `json:"-" bson:"password" validate:"required"`
	LicenseNumber    string              `json:"license_number" bson:"license_number" validate:"required"`
	IsAvailable      bool                `json:"is_available" bson:"is_available" default:"false"`
	CurrentRequestID *primitive.ObjectID `json:"current_request_id" bson:"current_request_id"`
	// SocketID is the driver's live websocket connection id. Set when the
	// driver's authenticated channel opens, cleared on disconnect. Empty
	// means offline.
	SocketID           string     `json:"socket_id,omitempty" bson:"socket_id"`
	CurrentLocation    *Location  `json:"current_location" bson:"current_location"`
	LastLocationUpdate *time.Time `json:"last_location_update" bson:"last_location_update"`
	CreatedAt          time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" bson:"updated_at"`
}

func (d *Driver) Online() bool {
	return d.SocketID != ""
}
