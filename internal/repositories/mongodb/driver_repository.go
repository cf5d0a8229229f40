package mongodb

import (
	"context"
	"fmt"
	"time"

	"ambulink/internal/models"
	"ambulink/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type driverRepository struct {
	collection *mongo.Collection
}

func NewDriverRepository(db *mongo.Database) interfaces.DriverRepository {
	return &driverRepository{
		collection: db.Collection("drivers"),
	}
}

func (r *driverRepository) Create(ctx context.Context, driver *models.Driver) error {
	driver.ID = primitive.NewObjectID()
	now := time.Now()
	driver.CreatedAt = now
	driver.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, driver)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return interfaces.ErrDuplicate
		}
		return fmt.Errorf("failed to create driver: %w", err)
	}

	return nil
}

func (r *driverRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	var driver models.Driver
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&driver)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}

	return &driver, nil
}

func (r *driverRepository) SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	return r.update(ctx, id, bson.M{"is_available": available})
}

func (r *driverRepository) SetCurrentRequest(ctx context.Context, id primitive.ObjectID, requestID *primitive.ObjectID) error {
	return r.update(ctx, id, bson.M{"current_request_id": requestID})
}

func (r *driverRepository) SetConnection(ctx context.Context, id primitive.ObjectID, socketID string) error {
	return r.update(ctx, id, bson.M{"socket_id": socketID})
}

// ClearConnectionBySocketID clears a stale connection id at disconnect time,
// when only the socket id is known. A no-match is not an error: the driver
// may have reconnected and overwritten the field already.
func (r *driverRepository) ClearConnectionBySocketID(ctx context.Context, socketID string) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"socket_id": socketID},
		bson.M{"$set": bson.M{"socket_id": "", "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to clear driver connection: %w", err)
	}
	return nil
}

func (r *driverRepository) UpdateLocation(ctx context.Context, id primitive.ObjectID, location models.Location) error {
	now := time.Now()
	return r.update(ctx, id, bson.M{
		"current_location":     location,
		"last_location_update": now,
	})
}

func (r *driverRepository) update(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update driver: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}

	return nil
}
