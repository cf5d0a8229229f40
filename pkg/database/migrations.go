package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ambulink/pkg/logger"
)

type Migration struct {
	Version     int
	Description string
	Up          func(*mongo.Database) error
	Down        func(*mongo.Database) error
}

type Migrator struct {
	db         *mongo.Database
	migrations []Migration
	log        *logger.Logger
}

func NewMigrator(db *mongo.Database, log *logger.Logger) *Migrator {
	return &Migrator{
		db:         db,
		migrations: getMigrations(),
		log:        log,
	}
}

func (m *Migrator) Up() error {
	if err := m.createMigrationsCollection(); err != nil {
		return err
	}

	currentVersion, err := m.getCurrentVersion()
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version > currentVersion {
			m.log.WithField("version", migration.Version).Infof("Running migration: %s", migration.Description)

			if err := migration.Up(m.db); err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}

			if err := m.updateVersion(migration.Version); err != nil {
				return fmt.Errorf("failed to update migration version: %w", err)
			}
		}
	}

	return nil
}

func (m *Migrator) Down(targetVersion int) error {
	currentVersion, err := m.getCurrentVersion()
	if err != nil {
		return err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		migration := m.migrations[i]
		if migration.Version <= currentVersion && migration.Version > targetVersion {
			m.log.WithField("version", migration.Version).Infof("Reverting migration: %s", migration.Description)

			if err := migration.Down(m.db); err != nil {
				return fmt.Errorf("migration %d rollback failed: %w", migration.Version, err)
			}

			previousVersion := targetVersion
			if i > 0 {
				previousVersion = m.migrations[i-1].Version
			}

			if err := m.updateVersion(previousVersion); err != nil {
				return fmt.Errorf("failed to update migration version: %w", err)
			}
		}
	}

	return nil
}

func (m *Migrator) createMigrationsCollection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collections, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return err
	}

	for _, name := range collections {
		if name == "migrations" {
			return nil
		}
	}

	return m.db.CreateCollection(ctx, "migrations")
}

func (m *Migrator) getCurrentVersion() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection("migrations").FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}

	return result.Version, nil
}

func (m *Migrator) updateVersion(version int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := m.db.Collection("migrations").ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updated_at", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)

	return err
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create drivers collection with indexes",
			Up: func(db *mongo.Database) error {
				return createDriversIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("drivers").Drop(context.Background())
			},
		},
		{
			Version:     2,
			Description: "Create ambulances collection with indexes",
			Up: func(db *mongo.Database) error {
				return createAmbulancesIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("ambulances").Drop(context.Background())
			},
		},
		{
			Version:     3,
			Description: "Create emergency_requests collection with indexes",
			Up: func(db *mongo.Database) error {
				return createEmergencyRequestsIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("emergency_requests").Drop(context.Background())
			},
		},
	}
}

func createDriversIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("drivers")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "license_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "socket_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "is_available", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "current_location", Value: "2dsphere"}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func createAmbulancesIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("ambulances")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "plate_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "driver_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "vehicle_type", Value: 1}, {Key: "is_available", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "current_location", Value: "2dsphere"}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func createEmergencyRequestsIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("emergency_requests")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "pickup_location", Value: "2dsphere"}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
