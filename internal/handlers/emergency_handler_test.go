package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ambulink/internal/models"
	"ambulink/internal/services"
	"ambulink/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubDispatchService returns canned results so handler tests exercise only
// binding, identity extraction and error mapping.
type stubDispatchService struct {
	request *models.EmergencyRequest
	err     error
}

func (s *stubDispatchService) CreateRequest(ctx context.Context, input *services.CreateRequestInput) (*models.EmergencyRequest, error) {
	return s.request, s.err
}

func (s *stubDispatchService) AcceptRequest(ctx context.Context, requestID, driverID primitive.ObjectID) (*models.EmergencyRequest, error) {
	return s.request, s.err
}

func (s *stubDispatchService) UpdateStatus(ctx context.Context, requestID, driverID primitive.ObjectID, status models.RequestStatus) (*models.EmergencyRequest, error) {
	return s.request, s.err
}

func (s *stubDispatchService) CancelRequest(ctx context.Context, requestID, patientID primitive.ObjectID) (*models.EmergencyRequest, error) {
	return s.request, s.err
}

func (s *stubDispatchService) CompletePayment(ctx context.Context, requestID, patientID primitive.ObjectID) (*models.EmergencyRequest, error) {
	return s.request, s.err
}

func (s *stubDispatchService) UpdateDriverLocation(ctx context.Context, driverID primitive.ObjectID, latitude, longitude float64) error {
	return s.err
}

func (s *stubDispatchService) GetRequest(ctx context.Context, requestID, callerID primitive.ObjectID) (*services.RequestDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.RequestDetail{EmergencyRequest: s.request}, nil
}

func (s *stubDispatchService) ListPatientRequests(ctx context.Context, patientID primitive.ObjectID, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error) {
	return nil, 0, s.err
}

func performRequest(handler gin.HandlerFunc, method, path string, body interface{}, userID primitive.ObjectID) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("user_id", userID)
	if path != "" {
		c.Params = gin.Params{{Key: "id", Value: path}}
	}

	handler(c)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) *utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}

func TestCreateRequestHandler(t *testing.T) {
	validBody := gin.H{
		"pickup_location": gin.H{"latitude": 23.8103, "longitude": 90.4125, "address": "Mirpur 10"},
		"destination":     gin.H{"latitude": 23.7262, "longitude": 90.3984, "address": "Dhaka Medical College"},
		"vehicle_type":    "icu",
		"emergency_type":  "accident",
	}

	t.Run("created", func(t *testing.T) {
		stub := &stubDispatchService{request: &models.EmergencyRequest{
			ID:     primitive.NewObjectID(),
			Status: models.RequestStatusPending,
			Amount: 2000,
		}}
		handler := NewEmergencyHandler(stub)

		w := performRequest(handler.CreateRequest, http.MethodPost, "", validBody, primitive.NewObjectID())

		assert.Equal(t, http.StatusCreated, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, utils.StatusSuccess, resp.Status)
	})

	t.Run("unknown vehicle type fails validation", func(t *testing.T) {
		handler := NewEmergencyHandler(&stubDispatchService{})

		body := gin.H{}
		for k, v := range validBody {
			body[k] = v
		}
		body["vehicle_type"] = "suv"

		w := performRequest(handler.CreateRequest, http.MethodPost, "", body, primitive.NewObjectID())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})

	t.Run("missing locations fail validation", func(t *testing.T) {
		handler := NewEmergencyHandler(&stubDispatchService{})

		w := performRequest(handler.CreateRequest, http.MethodPost, "", gin.H{
			"vehicle_type":   "ac",
			"emergency_type": "accident",
		}, primitive.NewObjectID())

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAcceptRequestHandlerErrorMapping(t *testing.T) {
	requestID := primitive.NewObjectID().Hex()

	tests := []struct {
		name       string
		serviceErr error
		statusCode int
		errorCode  string
		message    string
	}{
		{"already taken", services.ErrRequestTaken, http.StatusConflict, "CONFLICT", "Request is no longer available"},
		{"request missing", services.ErrRequestNotFound, http.StatusNotFound, "NOT_FOUND", "Emergency request not found"},
		{"no ambulance registered", services.ErrAmbulanceNotFound, http.StatusNotFound, "NOT_FOUND", "Ambulance not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewEmergencyHandler(&stubDispatchService{err: tt.serviceErr})

			w := performRequest(handler.AcceptRequest, http.MethodPost, requestID, nil, primitive.NewObjectID())

			assert.Equal(t, tt.statusCode, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.errorCode, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
		})
	}

	t.Run("malformed id", func(t *testing.T) {
		handler := NewEmergencyHandler(&stubDispatchService{})

		w := performRequest(handler.AcceptRequest, http.MethodPost, "not-an-id", nil, primitive.NewObjectID())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateStatusHandler(t *testing.T) {
	requestID := primitive.NewObjectID().Hex()

	t.Run("illegal transition", func(t *testing.T) {
		handler := NewEmergencyHandler(&stubDispatchService{err: services.ErrInvalidTransition})

		w := performRequest(handler.UpdateStatus, http.MethodPut, requestID, gin.H{"status": "arrived"}, primitive.NewObjectID())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INVALID_TRANSITION", resp.Error.Code)
	})

	t.Run("not the assigned driver", func(t *testing.T) {
		handler := NewEmergencyHandler(&stubDispatchService{err: services.ErrNotAssignedDriver})

		w := performRequest(handler.UpdateStatus, http.MethodPut, requestID, gin.H{"status": "arrived"}, primitive.NewObjectID())
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("status outside the enum", func(t *testing.T) {
		handler := NewEmergencyHandler(&stubDispatchService{})

		w := performRequest(handler.UpdateStatus, http.MethodPut, requestID, gin.H{"status": "teleported"}, primitive.NewObjectID())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCancelRequestHandler(t *testing.T) {
	handler := NewEmergencyHandler(&stubDispatchService{err: services.ErrNotRequestPatient})

	w := performRequest(handler.CancelRequest, http.MethodPut, primitive.NewObjectID().Hex(), nil, primitive.NewObjectID())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateLocationHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler := NewEmergencyHandler(&stubDispatchService{})

		w := performRequest(handler.UpdateLocation, http.MethodPut, "", gin.H{"latitude": 23.81, "longitude": 90.41}, primitive.NewObjectID())
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("out-of-range coordinates", func(t *testing.T) {
		handler := NewEmergencyHandler(&stubDispatchService{})

		w := performRequest(handler.UpdateLocation, http.MethodPut, "", gin.H{"latitude": -95, "longitude": 0}, primitive.NewObjectID())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
