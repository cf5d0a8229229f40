package handlers

import (
	"errors"

	"ambulink/internal/models"
	"ambulink/internal/services"
	"ambulink/internal/utils"
	"ambulink/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EmergencyHandler struct {
	dispatchService services.DispatchService
}

func NewEmergencyHandler(dispatchService services.DispatchService) *EmergencyHandler {
	return &EmergencyHandler{
		dispatchService: dispatchService,
	}
}

// CreateRequest handles a patient's new emergency request.
func (h *EmergencyHandler) CreateRequest(c *gin.Context) {
	var request validators.CreateEmergencyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateCreateEmergencyRequest(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	patientID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	input := &services.CreateRequestInput{
		PatientID:     patientID,
		Pickup:        models.NewLocation(request.PickupLocation.Longitude, request.PickupLocation.Latitude, request.PickupLocation.Address),
		Destination:   models.NewLocation(request.Destination.Longitude, request.Destination.Latitude, request.Destination.Address),
		VehicleType:   models.VehicleType(request.VehicleType),
		EmergencyType: request.EmergencyType,
		ContactPhone:  request.ContactPhone,
		Notes:         request.Notes,
	}

	created, err := h.dispatchService.CreateRequest(c.Request.Context(), input)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Emergency request created", created)
}

// AcceptRequest claims a pending request for the calling driver. Exactly one
// of any set of racing drivers succeeds.
func (h *EmergencyHandler) AcceptRequest(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid request ID")
		return
	}

	driverID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	request, err := h.dispatchService.AcceptRequest(c.Request.Context(), requestID, driverID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Request accepted", request)
}

// UpdateStatus advances the request lifecycle. Driver-only; transition
// legality is enforced by the dispatch service.
func (h *EmergencyHandler) UpdateStatus(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid request ID")
		return
	}

	var body validators.UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateUpdateStatusRequest(&body); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	driverID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	request, err := h.dispatchService.UpdateStatus(c.Request.Context(), requestID, driverID, models.RequestStatus(body.Status))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Status updated", request)
}

// CancelRequest lets the requesting patient withdraw a request that has not
// left yet.
func (h *EmergencyHandler) CancelRequest(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid request ID")
		return
	}

	patientID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	request, err := h.dispatchService.CancelRequest(c.Request.Context(), requestID, patientID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Request cancelled", request)
}

// CompletePayment marks the request as paid. Patient-only.
func (h *EmergencyHandler) CompletePayment(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid request ID")
		return
	}

	patientID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	request, err := h.dispatchService.CompletePayment(c.Request.Context(), requestID, patientID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Payment completed", request)
}

// GetRequest returns a request to its patient or its assigned driver.
func (h *EmergencyHandler) GetRequest(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid request ID")
		return
	}

	callerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	detail, err := h.dispatchService.GetRequest(c.Request.Context(), requestID, callerID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Request retrieved", detail)
}

// ListRequests returns the calling patient's request history.
func (h *EmergencyHandler) ListRequests(c *gin.Context) {
	patientID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	params := utils.GetPaginationParams(c)
	requests, total, err := h.dispatchService.ListPatientRequests(c.Request.Context(), patientID, params)
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponseWithMeta(c, "Requests retrieved", requests, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
		Total:      total,
	})
}

// UpdateLocation is the HTTP fallback for drivers whose websocket channel is
// down.
func (h *EmergencyHandler) UpdateLocation(c *gin.Context) {
	var body validators.UpdateLocationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateUpdateLocationRequest(&body); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	driverID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	if err := h.dispatchService.UpdateDriverLocation(c.Request.Context(), driverID, body.Latitude, body.Longitude); err != nil {
		h.writeServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Location updated", nil)
}

// writeServiceError maps dispatch errors onto the response envelope with a
// specific code; races and transitions carry their own messages so the
// caller knows why, not just that, the call failed.
func (h *EmergencyHandler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRequestNotFound):
		utils.NotFoundResponse(c, "Emergency request")
	case errors.Is(err, services.ErrDriverNotFound):
		utils.NotFoundResponse(c, "Driver")
	case errors.Is(err, services.ErrAmbulanceNotFound):
		utils.NotFoundResponse(c, "Ambulance")
	case errors.Is(err, services.ErrRequestTaken):
		utils.ConflictResponse(c, "Request is no longer available")
	case errors.Is(err, services.ErrNotAssignedDriver),
		errors.Is(err, services.ErrNotRequestPatient),
		errors.Is(err, services.ErrNotAuthorized):
		utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		utils.ErrorResponse(c, 400, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, services.ErrInvalidVehicleType),
		errors.Is(err, services.ErrInvalidCoordinates),
		errors.Is(err, services.ErrNoActiveRequest):
		utils.BadRequestResponse(c, err.Error())
	default:
		utils.InternalServerErrorResponse(c)
	}
}

func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return primitive.NilObjectID, false
	}
	id, ok := value.(primitive.ObjectID)
	return id, ok
}
