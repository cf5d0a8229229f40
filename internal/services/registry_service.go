package services

import (
	"context"
	"errors"

	"ambulink/internal/models"
	"ambulink/internal/repositories/interfaces"
	"ambulink/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegistryService answers which drivers and ambulances are currently
// eligible for dispatch and keeps their availability and live-connection
// fields consistent. Availability only changes as a side effect of the
// dispatcher's accept/complete transitions, never from a client request.
type RegistryService interface {
	FindAvailable(ctx context.Context, vehicleType models.VehicleType) ([]*models.AmbulanceWithDriver, error)
	MarkUnavailable(ctx context.Context, driverID primitive.ObjectID) error
	MarkAvailable(ctx context.Context, driverID primitive.ObjectID) error

	// Connection lifecycle, driven by the websocket hub.
	ClientConnected(ctx context.Context, userID primitive.ObjectID, role, socketID string)
	ClientDisconnected(ctx context.Context, socketID string)
}

type registryService struct {
	driverRepo    interfaces.DriverRepository
	ambulanceRepo interfaces.AmbulanceRepository
	log           *logger.Logger
}

func NewRegistryService(
	driverRepo interfaces.DriverRepository,
	ambulanceRepo interfaces.AmbulanceRepository,
	log *logger.Logger,
) RegistryService {
	return &registryService{
		driverRepo:    driverRepo,
		ambulanceRepo: ambulanceRepo,
		log:           log,
	}
}

func (s *registryService) FindAvailable(ctx context.Context, vehicleType models.VehicleType) ([]*models.AmbulanceWithDriver, error) {
	return s.ambulanceRepo.FindAvailableByType(ctx, vehicleType)
}

// MarkUnavailable flips the driver's and the ambulance's availability
// together: a driver mid-assignment must never surface in FindAvailable.
func (s *registryService) MarkUnavailable(ctx context.Context, driverID primitive.ObjectID) error {
	return s.setAvailability(ctx, driverID, false)
}

func (s *registryService) MarkAvailable(ctx context.Context, driverID primitive.ObjectID) error {
	return s.setAvailability(ctx, driverID, true)
}

func (s *registryService) setAvailability(ctx context.Context, driverID primitive.ObjectID, available bool) error {
	if err := s.driverRepo.SetAvailability(ctx, driverID, available); err != nil {
		return err
	}

	err := s.ambulanceRepo.SetAvailabilityByDriver(ctx, driverID, available)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return err
	}
	if errors.Is(err, interfaces.ErrNotFound) {
		// A driver without a registered ambulance should never have been
		// dispatchable in the first place.
		s.log.WithField("driver_id", driverID.Hex()).Warn("availability flip found no ambulance for driver")
	}

	return nil
}

// ClientConnected persists the socket id for drivers so broadcast targets
// survive across process restarts. The role comes from the authenticated
// session, so a patient cannot claim a driver's mapping.
func (s *registryService) ClientConnected(ctx context.Context, userID primitive.ObjectID, role, socketID string) {
	if role != "driver" {
		return
	}

	if err := s.driverRepo.SetConnection(ctx, userID, socketID); err != nil {
		s.log.WithFields(map[string]interface{}{
			"driver_id": userID.Hex(),
			"error":     err.Error(),
		}).Warn("failed to record driver connection")
	}
}

func (s *registryService) ClientDisconnected(ctx context.Context, socketID string) {
	if err := s.driverRepo.ClearConnectionBySocketID(ctx, socketID); err != nil {
		s.log.WithFields(map[string]interface{}{
			"socket_id": socketID,
			"error":     err.Error(),
		}).Warn("failed to clear driver connection")
	}
}
