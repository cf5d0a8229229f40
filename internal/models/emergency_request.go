package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VehicleType string
type RequestStatus string
type PaymentStatus string

const (
	VehicleTypeAC  VehicleType = "ac"
	VehicleTypeICU VehicleType = "icu"
	VehicleTypeVIP VehicleType = "vip"

	RequestStatusPending   RequestStatus = "pending"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusOnTheWay  RequestStatus = "on_the_way"
	RequestStatusNearby    RequestStatus = "nearby"
	RequestStatusArrived   RequestStatus = "arrived"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"

	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// VehicleFares maps a vehicle type to its flat dispatch fare. The fare is
// derived once at request creation and never recomputed.
var VehicleFares = map[VehicleType]float64{
	VehicleTypeAC:  1000,
	VehicleTypeICU: 2000,
	VehicleTypeVIP: 3000,
}

func (v VehicleType) Valid() bool {
	_, ok := VehicleFares[v]
	return ok
}

// nextStatus holds the single legal forward step for each non-terminal
// status. Cancellation is handled separately since it is only reachable
// from pending and accepted.
var nextStatus = map[RequestStatus]RequestStatus{
	RequestStatusPending:  RequestStatusAccepted,
	RequestStatusAccepted: RequestStatusOnTheWay,
	RequestStatusOnTheWay: RequestStatusNearby,
	RequestStatusNearby:   RequestStatusArrived,
	RequestStatusArrived:  RequestStatusCompleted,
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusAccepted, RequestStatusOnTheWay,
		RequestStatusNearby, RequestStatusArrived, RequestStatusCompleted,
		RequestStatusCancelled:
		return true
	}
	return false
}

func (s RequestStatus) Terminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusCancelled
}

// CanTransition reports whether moving from s to target is a legal step of
// the request lifecycle. A request already en route cannot be cancelled.
func (s RequestStatus) CanTransition(target RequestStatus) bool {
	if target == RequestStatusCancelled {
		return s == RequestStatusPending || s == RequestStatusAccepted
	}
	return nextStatus[s] == target
}

type EmergencyRequest struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	PatientID      primitive.ObjectID  `json:"patient_id" bson:"patient_id" validate:"required"`
	DriverID       *primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	AmbulanceID    *primitive.ObjectID `json:"ambulance_id" bson:"ambulance_id"`
	PickupLocation Location            `json:"pickup_location" bson:"pickup_location" validate:"required"`
	Destination    Location            `json:"destination" bson:"destination" validate:"required"`
	VehicleType    VehicleType         `json:"vehicle_type" bson:"vehicle_type" validate:"required"`
	Amount         float64             `json:"amount" bson:"amount"`
	Status         RequestStatus       `json:"status" bson:"status" default:"pending"`
	PaymentStatus  PaymentStatus       `json:"payment_status" bson:"payment_status" default:"pending"`
	EmergencyType  string              `json:"emergency_type" bson:"emergency_type" validate:"required"`
	// ContactPhone is the number SMS fallbacks go to when the patient has
	// no live connection.
	ContactPhone string     `json:"contact_phone,omitempty" bson:"contact_phone,omitempty"`
	Notes        string     `json:"notes" bson:"notes"`
	CreatedAt    time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" bson:"updated_at"`
	AcceptedAt   *time.Time `json:"accepted_at" bson:"accepted_at"`
	CompletedAt  *time.Time `json:"completed_at" bson:"completed_at"`
	CancelledAt  *time.Time `json:"cancelled_at" bson:"cancelled_at"`
}

// Active reports whether the request currently holds a driver assignment.
func (r *EmergencyRequest) Active() bool {
	return !r.Status.Terminal() && r.Status != RequestStatusPending
}
