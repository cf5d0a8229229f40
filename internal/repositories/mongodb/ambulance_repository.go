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

type ambulanceRepository struct {
	collection *mongo.Collection
}

func NewAmbulanceRepository(db *mongo.Database) interfaces.AmbulanceRepository {
	return &ambulanceRepository{
		collection: db.Collection("ambulances"),
	}
}

func (r *ambulanceRepository) Create(ctx context.Context, ambulance *models.Ambulance) error {
	ambulance.ID = primitive.NewObjectID()
	now := time.Now()
	ambulance.CreatedAt = now
	ambulance.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, ambulance)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return interfaces.ErrDuplicate
		}
		return fmt.Errorf("failed to create ambulance: %w", err)
	}

	return nil
}

func (r *ambulanceRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error) {
	var ambulance models.Ambulance
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ambulance)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ambulance: %w", err)
	}

	return &ambulance, nil
}

func (r *ambulanceRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error) {
	var ambulance models.Ambulance
	err := r.collection.FindOne(ctx, bson.M{"driver_id": driverID}).Decode(&ambulance)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ambulance by driver: %w", err)
	}

	return &ambulance, nil
}

// FindAvailableByType joins each matching ambulance with its owning driver so
// the registry can hand the dispatcher both the assignment target and the
// driver's live socket id in one query.
func (r *ambulanceRepository) FindAvailableByType(ctx context.Context, vehicleType models.VehicleType) ([]*models.AmbulanceWithDriver, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"vehicle_type": vehicleType,
			"is_available": true,
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "drivers",
			"localField":   "driver_id",
			"foreignField": "_id",
			"as":           "driver",
		}}},
		{{Key: "$unwind", Value: "$driver"}},
		{{Key: "$match", Value: bson.M{"driver.is_available": true}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to find available ambulances: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*models.AmbulanceWithDriver
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode available ambulances: %w", err)
	}

	return results, nil
}

func (r *ambulanceRepository) SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"is_available": available})
}

func (r *ambulanceRepository) SetAvailabilityByDriver(ctx context.Context, driverID primitive.ObjectID, available bool) error {
	return r.updateOne(ctx, bson.M{"driver_id": driverID}, bson.M{"is_available": available})
}

func (r *ambulanceRepository) UpdateLocation(ctx context.Context, id primitive.ObjectID, location models.Location) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"current_location": location})
}

func (r *ambulanceRepository) UpdateLocationByDriver(ctx context.Context, driverID primitive.ObjectID, location models.Location) error {
	return r.updateOne(ctx, bson.M{"driver_id": driverID}, bson.M{"current_location": location})
}

func (r *ambulanceRepository) updateOne(ctx context.Context, filter, fields bson.M) error {
	fields["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update ambulance: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}

	return nil
}
