package services

import "errors"

var (
	// ErrRequestNotFound means the emergency request does not exist.
	ErrRequestNotFound = errors.New("emergency request not found")

	// ErrDriverNotFound means the acting driver has no registered profile.
	ErrDriverNotFound = errors.New("driver not found")

	// ErrAmbulanceNotFound means the driver has no registered ambulance.
	ErrAmbulanceNotFound = errors.New("ambulance not found")

	// ErrRequestTaken means another driver claimed the request first.
	ErrRequestTaken = errors.New("request is no longer available")

	// ErrNotAssignedDriver means the caller is not the driver assigned to
	// the request.
	ErrNotAssignedDriver = errors.New("not the assigned driver")

	// ErrNotRequestPatient means the caller is not the patient who created
	// the request.
	ErrNotRequestPatient = errors.New("not the requesting patient")

	// ErrInvalidTransition means the requested status is not a legal step
	// from the request's current status.
	ErrInvalidTransition = errors.New("illegal status transition")

	// ErrInvalidVehicleType means the requested vehicle type has no fare
	// entry and the request must be rejected rather than priced at zero.
	ErrInvalidVehicleType = errors.New("unknown vehicle type")

	// ErrNoActiveRequest means the driver pushed an update without an
	// assignment.
	ErrNoActiveRequest = errors.New("driver has no active request")

	// ErrNotAuthorized means the caller is neither the requesting patient
	// nor the assigned driver.
	ErrNotAuthorized = errors.New("not authorized for this request")

	// ErrInvalidCoordinates means a pushed location is outside valid
	// longitude/latitude bounds.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)
