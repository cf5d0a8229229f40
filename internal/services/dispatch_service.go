package services

import (
	"context"
	"errors"
	"fmt"

	"ambulink/internal/models"
	"ambulink/internal/repositories/interfaces"
	"ambulink/internal/utils"
	"ambulink/pkg/logger"
	"ambulink/pkg/sms"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateRequestInput carries a patient's emergency request. The patient id
// comes from the authenticated session, never from the body.
type CreateRequestInput struct {
	PatientID     primitive.ObjectID
	Pickup        models.Location
	Destination   models.Location
	VehicleType   models.VehicleType
	EmergencyType string
	ContactPhone  string
	Notes         string
}

// DispatchService owns the emergency request lifecycle and its side effects
// on driver and ambulance availability.
type DispatchService interface {
	CreateRequest(ctx context.Context, input *CreateRequestInput) (*models.EmergencyRequest, error)
	AcceptRequest(ctx context.Context, requestID, driverID primitive.ObjectID) (*models.EmergencyRequest, error)
	UpdateStatus(ctx context.Context, requestID, driverID primitive.ObjectID, status models.RequestStatus) (*models.EmergencyRequest, error)
	CancelRequest(ctx context.Context, requestID, patientID primitive.ObjectID) (*models.EmergencyRequest, error)
	CompletePayment(ctx context.Context, requestID, patientID primitive.ObjectID) (*models.EmergencyRequest, error)
	UpdateDriverLocation(ctx context.Context, driverID primitive.ObjectID, latitude, longitude float64) error
	GetRequest(ctx context.Context, requestID, callerID primitive.ObjectID) (*RequestDetail, error)
	ListPatientRequests(ctx context.Context, patientID primitive.ObjectID, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error)
}

// RequestDetail is the single-request read model: the request document with
// the assigned driver and ambulance attached once a driver has claimed it.
type RequestDetail struct {
	*models.EmergencyRequest
	Driver    *models.Driver    `json:"driver,omitempty"`
	Ambulance *models.Ambulance `json:"ambulance,omitempty"`
}

type dispatchService struct {
	requestRepo   interfaces.RequestRepository
	driverRepo    interfaces.DriverRepository
	ambulanceRepo interfaces.AmbulanceRepository
	registry      RegistryService
	notifier      Notifier
	smsProvider   sms.SMSProvider
	log           *logger.Logger
}

func NewDispatchService(
	requestRepo interfaces.RequestRepository,
	driverRepo interfaces.DriverRepository,
	ambulanceRepo interfaces.AmbulanceRepository,
	registry RegistryService,
	notifier Notifier,
	smsProvider sms.SMSProvider,
	log *logger.Logger,
) DispatchService {
	return &dispatchService{
		requestRepo:   requestRepo,
		driverRepo:    driverRepo,
		ambulanceRepo: ambulanceRepo,
		registry:      registry,
		notifier:      notifier,
		smsProvider:   smsProvider,
		log:           log,
	}
}

// CreateRequest persists the request and broadcasts it to every available
// driver of the matching vehicle type. The fare is derived once here; an
// unknown vehicle type is rejected rather than priced at zero.
func (s *dispatchService) CreateRequest(ctx context.Context, input *CreateRequestInput) (*models.EmergencyRequest, error) {
	if !input.VehicleType.Valid() {
		return nil, ErrInvalidVehicleType
	}

	request := &models.EmergencyRequest{
		PatientID:      input.PatientID,
		PickupLocation: input.Pickup,
		Destination:    input.Destination,
		VehicleType:    input.VehicleType,
		Amount:         models.VehicleFares[input.VehicleType],
		Status:         models.RequestStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		EmergencyType:  input.EmergencyType,
		ContactPhone:   input.ContactPhone,
		Notes:          input.Notes,
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	s.log.LogDispatchEvent(request.ID, "created", map[string]interface{}{
		"patient_id":   input.PatientID.Hex(),
		"vehicle_type": input.VehicleType,
		"amount":       request.Amount,
	})

	s.broadcastToAvailableDrivers(ctx, request)

	return request, nil
}

// broadcastToAvailableDrivers is best-effort: offline drivers are skipped
// and send failures logged, never surfaced to the patient.
func (s *dispatchService) broadcastToAvailableDrivers(ctx context.Context, request *models.EmergencyRequest) {
	candidates, err := s.registry.FindAvailable(ctx, request.VehicleType)
	if err != nil {
		s.log.WithError(err).Error("failed to look up available drivers for broadcast")
		return
	}

	payload := map[string]interface{}{
		"request_id":      request.ID.Hex(),
		"pickup_location": request.PickupLocation,
		"destination":     request.Destination,
		"vehicle_type":    request.VehicleType,
		"emergency_type":  request.EmergencyType,
		"notes":           request.Notes,
	}

	notified := 0
	for _, candidate := range candidates {
		if !candidate.Driver.Online() {
			continue
		}
		s.notifier.NotifyUser(candidate.Driver.ID, EventNewEmergencyRequest, payload)
		notified++
	}

	s.log.LogDispatchEvent(request.ID, "broadcast", map[string]interface{}{
		"candidates": len(candidates),
		"notified":   notified,
	})
}

// AcceptRequest claims a pending request for a driver. The storage layer's
// conditional update is the sole arbiter: with any number of concurrent
// callers exactly one wins, the rest get ErrRequestTaken.
func (s *dispatchService) AcceptRequest(ctx context.Context, requestID, driverID primitive.ObjectID) (*models.EmergencyRequest, error) {
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}

	ambulance, err := s.ambulanceRepo.GetByDriver(ctx, driverID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrAmbulanceNotFound
		}
		return nil, err
	}

	request, err := s.requestRepo.Accept(ctx, requestID, driverID, ambulance.ID)
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrNotFound):
			return nil, ErrRequestNotFound
		case errors.Is(err, interfaces.ErrRequestTaken):
			return nil, ErrRequestTaken
		}
		return nil, err
	}

	// The claim is durable; everything below is a side effect of it.
	if err := s.registry.MarkUnavailable(ctx, driverID); err != nil {
		s.log.WithError(err).Error("failed to mark driver unavailable after accept")
	}
	if err := s.driverRepo.SetCurrentRequest(ctx, driverID, &request.ID); err != nil {
		s.log.WithError(err).Error("failed to set driver current request after accept")
	}

	s.log.LogDispatchEvent(request.ID, "accepted", map[string]interface{}{
		"driver_id":    driverID.Hex(),
		"ambulance_id": ambulance.ID.Hex(),
	})

	s.notifyAccepted(ctx, request, driver, ambulance)

	return request, nil
}

func (s *dispatchService) notifyAccepted(ctx context.Context, request *models.EmergencyRequest, driver *models.Driver, ambulance *models.Ambulance) {
	s.notifier.NotifyUser(request.PatientID, EventRequestAccepted, map[string]interface{}{
		"request_id":     request.ID.Hex(),
		"driver_name":    driver.Name,
		"driver_phone":   driver.Phone,
		"vehicle_type":   ambulance.VehicleType,
		"vehicle_name":   ambulance.VehicleName,
		"plate_number":   ambulance.PlateNumber,
		"status":         request.Status,
		"payment_status": request.PaymentStatus,
	})

	// SMS fallback when the patient is not connected. Best-effort.
	if s.smsProvider == nil || request.ContactPhone == "" || s.notifier.IsOnline(request.PatientID) {
		return
	}

	message := fmt.Sprintf("Your ambulance request was accepted. Driver %s (%s), vehicle %s, plate %s.",
		driver.Name, driver.Phone, ambulance.VehicleName, ambulance.PlateNumber)
	if _, err := s.smsProvider.SendSMS(ctx, &sms.SMSRequest{
		To:      utils.NormalizePhone(request.ContactPhone),
		Message: message,
	}); err != nil {
		s.log.WithError(err).Warn("failed to send acceptance SMS")
	}
}

// UpdateStatus advances the request through the lifecycle. Only the assigned
// driver may move it, and only along a legal transition.
func (s *dispatchService) UpdateStatus(ctx context.Context, requestID, driverID primitive.ObjectID, status models.RequestStatus) (*models.EmergencyRequest, error) {
	if !status.Valid() {
		return nil, ErrInvalidTransition
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if request.DriverID == nil || *request.DriverID != driverID {
		return nil, ErrNotAssignedDriver
	}

	return s.applyTransition(ctx, request, status)
}

// CancelRequest lets the requesting patient withdraw a request that is not
// yet en route. Cancelling an accepted request frees the driver.
func (s *dispatchService) CancelRequest(ctx context.Context, requestID, patientID primitive.ObjectID) (*models.EmergencyRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if request.PatientID != patientID {
		return nil, ErrNotRequestPatient
	}

	return s.applyTransition(ctx, request, models.RequestStatusCancelled)
}

// applyTransition enforces the transition table, persists the step, releases
// the driver on terminal states, and notifies the patient.
func (s *dispatchService) applyTransition(ctx context.Context, request *models.EmergencyRequest, status models.RequestStatus) (*models.EmergencyRequest, error) {
	if !request.Status.CanTransition(status) {
		return nil, ErrInvalidTransition
	}

	if err := s.requestRepo.UpdateStatus(ctx, request.ID, status); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	previous := request.Status
	request.Status = status

	if status.Terminal() && request.DriverID != nil {
		if err := s.registry.MarkAvailable(ctx, *request.DriverID); err != nil {
			s.log.WithError(err).Error("failed to release driver after terminal transition")
		}
		if err := s.driverRepo.SetCurrentRequest(ctx, *request.DriverID, nil); err != nil {
			s.log.WithError(err).Error("failed to clear driver current request")
		}
	}

	s.log.LogDispatchEvent(request.ID, "status_changed", map[string]interface{}{
		"from": previous,
		"to":   status,
	})

	s.notifier.NotifyUser(request.PatientID, EventRequestStatusUpdate, map[string]interface{}{
		"request_id": request.ID.Hex(),
		"status":     status,
	})

	return request, nil
}

// CompletePayment is independent of the status machine and restricted to the
// requesting patient. No notification side effect is defined for it.
func (s *dispatchService) CompletePayment(ctx context.Context, requestID, patientID primitive.ObjectID) (*models.EmergencyRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if request.PatientID != patientID {
		return nil, ErrNotRequestPatient
	}

	if err := s.requestRepo.UpdatePaymentStatus(ctx, requestID, models.PaymentStatusCompleted); err != nil {
		return nil, err
	}

	request.PaymentStatus = models.PaymentStatusCompleted
	return request, nil
}

// UpdateDriverLocation stores the last-known position on the driver and
// their ambulance, and forwards it to the patient of the active request.
// No history is kept.
func (s *dispatchService) UpdateDriverLocation(ctx context.Context, driverID primitive.ObjectID, latitude, longitude float64) error {
	location := models.NewLocation(longitude, latitude, "")
	if !location.Valid() {
		return ErrInvalidCoordinates
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrDriverNotFound
		}
		return err
	}

	if err := s.driverRepo.UpdateLocation(ctx, driverID, location); err != nil {
		return err
	}
	if err := s.ambulanceRepo.UpdateLocationByDriver(ctx, driverID, location); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		s.log.WithError(err).Warn("failed to update ambulance location")
	}

	if driver.CurrentRequestID == nil {
		return nil
	}

	request, err := s.requestRepo.GetByID(ctx, *driver.CurrentRequestID)
	if err != nil {
		s.log.WithError(err).Warn("driver has dangling current request")
		return nil
	}

	s.notifier.NotifyUser(request.PatientID, EventDriverLocation, map[string]interface{}{
		"request_id": request.ID.Hex(),
		"driver_id":  driverID.Hex(),
		"latitude":   latitude,
		"longitude":  longitude,
	})

	return nil
}

// GetRequest is visible to the requesting patient and the assigned driver
// only. Once a driver has claimed the request the detail carries the driver
// and ambulance documents, so the patient sees who is coming.
func (s *dispatchService) GetRequest(ctx context.Context, requestID, callerID primitive.ObjectID) (*RequestDetail, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if request.PatientID != callerID && (request.DriverID == nil || *request.DriverID != callerID) {
		return nil, ErrNotAuthorized
	}

	detail := &RequestDetail{EmergencyRequest: request}
	if request.DriverID != nil {
		driver, err := s.driverRepo.GetByID(ctx, *request.DriverID)
		if err != nil {
			s.log.WithError(err).WithField("driver_id", request.DriverID.Hex()).Warn("assigned driver could not be loaded")
		} else {
			detail.Driver = driver
		}
	}
	if request.AmbulanceID != nil {
		ambulance, err := s.ambulanceRepo.GetByID(ctx, *request.AmbulanceID)
		if err != nil {
			s.log.WithError(err).WithField("ambulance_id", request.AmbulanceID.Hex()).Warn("assigned ambulance could not be loaded")
		} else {
			detail.Ambulance = ambulance
		}
	}

	return detail, nil
}

func (s *dispatchService) ListPatientRequests(ctx context.Context, patientID primitive.ObjectID, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error) {
	return s.requestRepo.GetByPatient(ctx, patientID, params)
}

// HandleLocationUpdate and HandleStatusUpdate make the dispatcher the
// receiving end of the websocket channel's driver events. Identity comes
// from the authenticated session that opened the socket.

func (s *dispatchService) HandleLocationUpdate(ctx context.Context, driverID primitive.ObjectID, latitude, longitude float64) error {
	return s.UpdateDriverLocation(ctx, driverID, latitude, longitude)
}

func (s *dispatchService) HandleStatusUpdate(ctx context.Context, driverID primitive.ObjectID, status string) error {
	requestStatus := models.RequestStatus(status)
	if !requestStatus.Valid() {
		return ErrInvalidTransition
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrDriverNotFound
		}
		return err
	}
	if driver.CurrentRequestID == nil {
		return ErrNoActiveRequest
	}

	request, err := s.UpdateStatus(ctx, *driver.CurrentRequestID, driverID, requestStatus)
	if err != nil {
		return err
	}

	s.notifier.NotifyUser(request.PatientID, EventDriverStatus, map[string]interface{}{
		"request_id": request.ID.Hex(),
		"driver_id":  driverID.Hex(),
		"status":     requestStatus,
	})

	return nil
}
