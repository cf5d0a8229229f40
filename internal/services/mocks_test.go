package services

import (
	"context"
	"sync"

	"ambulink/internal/models"
	"ambulink/internal/repositories/interfaces"
	"ambulink/internal/utils"
	"ambulink/pkg/logger"
	"ambulink/pkg/sms"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() *logger.Logger {
	log, _ := logger.NewLogger(&logger.Config{
		Level:   logger.ErrorLevel,
		Format:  "text",
		Output:  "stdout",
		AppName: "ambulink-test",
	})
	return log
}

// mockRequestRepo keeps requests in memory and mirrors the storage layer's
// conditional accept so concurrency tests resolve the same way production
// does.
type mockRequestRepo struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]*models.EmergencyRequest

	createErr       error
	getErr          error
	acceptErr       error
	updateStatusErr error

	acceptCalls       int
	updateStatusCalls int
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[primitive.ObjectID]*models.EmergencyRequest)}
}

func (m *mockRequestRepo) Create(ctx context.Context, request *models.EmergencyRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if request.ID.IsZero() {
		request.ID = primitive.NewObjectID()
	}
	stored := *request
	m.requests[request.ID] = &stored
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	request, ok := m.requests[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	found := *request
	return &found, nil
}

func (m *mockRequestRepo) GetByPatient(ctx context.Context, patientID primitive.ObjectID, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var results []*models.EmergencyRequest
	for _, request := range m.requests {
		if request.PatientID == patientID {
			found := *request
			results = append(results, &found)
		}
	}
	return results, int64(len(results)), nil
}

func (m *mockRequestRepo) Accept(ctx context.Context, id, driverID, ambulanceID primitive.ObjectID) (*models.EmergencyRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.acceptCalls++
	if m.acceptErr != nil {
		return nil, m.acceptErr
	}

	request, ok := m.requests[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if request.Status != models.RequestStatusPending {
		return nil, interfaces.ErrRequestTaken
	}

	request.DriverID = &driverID
	request.AmbulanceID = &ambulanceID
	request.Status = models.RequestStatusAccepted

	accepted := *request
	return &accepted, nil
}

func (m *mockRequestRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateStatusCalls++
	if m.updateStatusErr != nil {
		return m.updateStatusErr
	}
	request, ok := m.requests[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	request.Status = status
	return nil
}

func (m *mockRequestRepo) UpdatePaymentStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	request, ok := m.requests[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	request.PaymentStatus = status
	return nil
}

func (m *mockRequestRepo) get(id primitive.ObjectID) *models.EmergencyRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id]
}

type mockDriverRepo struct {
	mu      sync.Mutex
	drivers map[primitive.ObjectID]*models.Driver

	getErr             error
	setAvailabilityErr error

	availabilityHistory []bool
}

func newMockDriverRepo() *mockDriverRepo {
	return &mockDriverRepo{drivers: make(map[primitive.ObjectID]*models.Driver)}
}

func (m *mockDriverRepo) add(driver *models.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if driver.ID.IsZero() {
		driver.ID = primitive.NewObjectID()
	}
	m.drivers[driver.ID] = driver
}

func (m *mockDriverRepo) Create(ctx context.Context, driver *models.Driver) error {
	m.add(driver)
	return nil
}

func (m *mockDriverRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	driver, ok := m.drivers[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	found := *driver
	return &found, nil
}

func (m *mockDriverRepo) SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.setAvailabilityErr != nil {
		return m.setAvailabilityErr
	}
	driver, ok := m.drivers[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	driver.IsAvailable = available
	m.availabilityHistory = append(m.availabilityHistory, available)
	return nil
}

func (m *mockDriverRepo) SetCurrentRequest(ctx context.Context, id primitive.ObjectID, requestID *primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	driver, ok := m.drivers[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	driver.CurrentRequestID = requestID
	return nil
}

func (m *mockDriverRepo) SetConnection(ctx context.Context, id primitive.ObjectID, socketID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	driver, ok := m.drivers[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	driver.SocketID = socketID
	return nil
}

func (m *mockDriverRepo) ClearConnectionBySocketID(ctx context.Context, socketID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, driver := range m.drivers {
		if driver.SocketID == socketID {
			driver.SocketID = ""
		}
	}
	return nil
}

func (m *mockDriverRepo) UpdateLocation(ctx context.Context, id primitive.ObjectID, location models.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	driver, ok := m.drivers[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	driver.CurrentLocation = &location
	return nil
}

func (m *mockDriverRepo) get(id primitive.ObjectID) *models.Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drivers[id]
}

type mockAmbulanceRepo struct {
	mu         sync.Mutex
	ambulances map[primitive.ObjectID]*models.Ambulance

	// available is what FindAvailableByType returns; tests set it directly
	// instead of emulating the aggregation join.
	available []*models.AmbulanceWithDriver

	getByDriverErr error
	findErr        error
}

func newMockAmbulanceRepo() *mockAmbulanceRepo {
	return &mockAmbulanceRepo{ambulances: make(map[primitive.ObjectID]*models.Ambulance)}
}

func (m *mockAmbulanceRepo) add(ambulance *models.Ambulance) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ambulance.ID.IsZero() {
		ambulance.ID = primitive.NewObjectID()
	}
	m.ambulances[ambulance.ID] = ambulance
}

func (m *mockAmbulanceRepo) Create(ctx context.Context, ambulance *models.Ambulance) error {
	m.add(ambulance)
	return nil
}

func (m *mockAmbulanceRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ambulance, ok := m.ambulances[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	found := *ambulance
	return &found, nil
}

func (m *mockAmbulanceRepo) GetByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getByDriverErr != nil {
		return nil, m.getByDriverErr
	}
	for _, ambulance := range m.ambulances {
		if ambulance.DriverID == driverID {
			found := *ambulance
			return &found, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (m *mockAmbulanceRepo) FindAvailableByType(ctx context.Context, vehicleType models.VehicleType) ([]*models.AmbulanceWithDriver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return nil, m.findErr
	}
	var results []*models.AmbulanceWithDriver
	for _, candidate := range m.available {
		if candidate.VehicleType == vehicleType {
			results = append(results, candidate)
		}
	}
	return results, nil
}

func (m *mockAmbulanceRepo) SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ambulance, ok := m.ambulances[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	ambulance.IsAvailable = available
	return nil
}

func (m *mockAmbulanceRepo) SetAvailabilityByDriver(ctx context.Context, driverID primitive.ObjectID, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ambulance := range m.ambulances {
		if ambulance.DriverID == driverID {
			ambulance.IsAvailable = available
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (m *mockAmbulanceRepo) UpdateLocation(ctx context.Context, id primitive.ObjectID, location models.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ambulance, ok := m.ambulances[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	ambulance.CurrentLocation = &location
	return nil
}

func (m *mockAmbulanceRepo) UpdateLocationByDriver(ctx context.Context, driverID primitive.ObjectID, location models.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ambulance := range m.ambulances {
		if ambulance.DriverID == driverID {
			ambulance.CurrentLocation = &location
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (m *mockAmbulanceRepo) get(id primitive.ObjectID) *models.Ambulance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ambulances[id]
}

type sentEvent struct {
	userID primitive.ObjectID
	event  string
	data   map[string]interface{}
}

// mockNotifier records every event instead of delivering it.
type mockNotifier struct {
	mu     sync.Mutex
	events []sentEvent
	online map[primitive.ObjectID]bool
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{online: make(map[primitive.ObjectID]bool)}
}

func (m *mockNotifier) NotifyUser(userID primitive.ObjectID, event string, data map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, sentEvent{userID: userID, event: event, data: data})
}

func (m *mockNotifier) IsOnline(userID primitive.ObjectID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online[userID]
}

func (m *mockNotifier) setOnline(userID primitive.ObjectID, online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[userID] = online
}

func (m *mockNotifier) eventsFor(userID primitive.ObjectID) []sentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var results []sentEvent
	for _, e := range m.events {
		if e.userID == userID {
			results = append(results, e)
		}
	}
	return results
}

func (m *mockNotifier) countEvent(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, e := range m.events {
		if e.event == event {
			count++
		}
	}
	return count
}

type mockSMSProvider struct {
	mu      sync.Mutex
	sent    []*sms.SMSRequest
	sendErr error
}

func (m *mockSMSProvider) SendSMS(ctx context.Context, request *sms.SMSRequest) (*sms.SMSResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, request)
	return &sms.SMSResponse{Status: "sent"}, nil
}

func (m *mockSMSProvider) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
