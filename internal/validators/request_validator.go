package validators

import "ambulink/internal/utils"

type LocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Address   string  `json:"address" validate:"required,min=3,max=255"`
}

type CreateEmergencyRequest struct {
	PickupLocation LocationRequest `json:"pickup_location" validate:"required"`
	Destination    LocationRequest `json:"destination" validate:"required"`
	VehicleType    string          `json:"vehicle_type" validate:"required,vehicle_type"`
	EmergencyType  string          `json:"emergency_type" validate:"required,min=3,max=255"`
	ContactPhone   string          `json:"contact_phone" validate:"omitempty,min=7,max=20"`
	Notes          string          `json:"notes" validate:"omitempty,max=1000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted on_the_way nearby arrived completed cancelled"`
}

type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

func ValidateCreateEmergencyRequest(req *CreateEmergencyRequest) ValidationErrors {
	errors := ValidateStruct(req)

	// Zero-value coordinates pass the range tags; catch the degenerate
	// "no location at all" payload explicitly.
	if req.PickupLocation.Latitude == 0 && req.PickupLocation.Longitude == 0 && req.PickupLocation.Address == "" {
		errors = append(errors, ValidationError{
			Field:   "pickup_location",
			Message: "Pickup location is required",
		})
	}
	if req.Destination.Latitude == 0 && req.Destination.Longitude == 0 && req.Destination.Address == "" {
		errors = append(errors, ValidationError{
			Field:   "destination",
			Message: "Destination is required",
		})
	}

	if req.ContactPhone != "" && !utils.IsValidPhone(req.ContactPhone) {
		errors = append(errors, ValidationError{
			Field:   "contact_phone",
			Message: "Contact phone must be a valid phone number",
		})
	}

	return errors
}

func ValidateUpdateStatusRequest(req *UpdateStatusRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateUpdateLocationRequest(req *UpdateLocationRequest) ValidationErrors {
	return ValidateStruct(req)
}
