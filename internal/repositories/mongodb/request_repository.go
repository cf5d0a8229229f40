package mongodb

import (
	"context"
	"fmt"
	"time"

	"ambulink/internal/models"
	"ambulink/internal/repositories/interfaces"
	"ambulink/internal/services"
	"ambulink/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const activeRequestCacheTTL = 10 * time.Minute

type requestRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewRequestRepository(db *mongo.Database, cache services.CacheService) interfaces.RequestRepository {
	return &requestRepository{
		collection: db.Collection("emergency_requests"),
		cache:      cache,
	}
}

func (r *requestRepository) Create(ctx context.Context, request *models.EmergencyRequest) error {
	request.ID = primitive.NewObjectID()
	now := time.Now()
	request.CreatedAt = now
	request.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to create emergency request: %w", err)
	}

	r.cacheRequest(ctx, request)
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error) {
	if request := r.requestFromCache(ctx, id.Hex()); request != nil {
		return request, nil
	}

	var request models.EmergencyRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get emergency request: %w", err)
	}

	return &request, nil
}

func (r *requestRepository) GetByPatient(ctx context.Context, patientID primitive.ObjectID, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error) {
	filter := bson.M{"patient_id": patientID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count emergency requests: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list emergency requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []*models.EmergencyRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, 0, fmt.Errorf("failed to decode emergency requests: %w", err)
	}

	return requests, total, nil
}

// Accept is the compare-and-swap at the heart of the dispatch flow: the
// filter matches only while the request is still pending, so of any number
// of racing drivers exactly one update can succeed.
func (r *requestRepository) Accept(ctx context.Context, id, driverID, ambulanceID primitive.ObjectID) (*models.EmergencyRequest, error) {
	now := time.Now()
	filter := bson.M{
		"_id":    id,
		"status": models.RequestStatusPending,
	}
	update := bson.M{"$set": bson.M{
		"status":       models.RequestStatusAccepted,
		"driver_id":    driverID,
		"ambulance_id": ambulanceID,
		"accepted_at":  now,
		"updated_at":   now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var request models.EmergencyRequest
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&request)
	if err == nil {
		r.cacheRequest(ctx, &request)
		return &request, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to accept emergency request: %w", err)
	}

	// Nothing matched: distinguish a missing request from one another
	// driver already claimed.
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to check emergency request: %w", err)
	}
	if count == 0 {
		return nil, interfaces.ErrNotFound
	}
	return nil, interfaces.ErrRequestTaken
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RequestStatus) error {
	now := time.Now()
	updates := bson.M{
		"status":     status,
		"updated_at": now,
	}

	switch status {
	case models.RequestStatusCompleted:
		updates["completed_at"] = now
	case models.RequestStatusCancelled:
		updates["cancelled_at"] = now
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}

	r.invalidateRequestCache(ctx, id.Hex())
	return nil
}

func (r *requestRepository) UpdatePaymentStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"payment_status": status,
			"updated_at":     time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}

	r.invalidateRequestCache(ctx, id.Hex())
	return nil
}

// Cache helpers. Only write paths populate the cache: Create and Accept
// store the document they just persisted, status updates invalidate. Reads
// never repopulate, so a reader holding a pre-update document cannot put a
// stale status back after an invalidation.

func (r *requestRepository) cacheRequest(ctx context.Context, request *models.EmergencyRequest) {
	if r.cache == nil {
		return
	}
	key := "emergency_request:" + request.ID.Hex()
	r.cache.Set(ctx, key, request, activeRequestCacheTTL)
}

func (r *requestRepository) requestFromCache(ctx context.Context, id string) *models.EmergencyRequest {
	if r.cache == nil {
		return nil
	}
	var request models.EmergencyRequest
	if err := r.cache.Get(ctx, "emergency_request:"+id, &request); err != nil {
		return nil
	}
	return &request
}

func (r *requestRepository) invalidateRequestCache(ctx context.Context, id string) {
	if r.cache == nil {
		return
	}
	r.cache.Delete(ctx, "emergency_request:"+id)
}
