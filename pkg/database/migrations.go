package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
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
}

func NewMigrator(db *mongo.Database) *Migrator {
	return &Migrator{
		db:         db,
		migrations: getMigrations(),
	}
}

func (m *Migrator) Up() error {
	// Create migrations collection if it doesn't exist
	err := m.createMigrationsCollection()
	if err != nil {
		return err
	}

	// Get current version
	currentVersion, err := m.getCurrentVersion()
	if err != nil {
		return err
	}

	// Run migrations
	for _, migration := range m.migrations {
		if migration.Version > currentVersion {
			log.Printf("Running migration %d: %s", migration.Version, migration.Description)

			err := migration.Up(m.db)
			if err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}

			err = m.updateVersion(migration.Version)
			if err != nil {
				return fmt.Errorf("failed to update migration version: %w", err)
			}

			log.Printf("Migration %d completed successfully", migration.Version)
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
			log.Printf("Reverting migration %d: %s", migration.Version, migration.Description)

			err := migration.Down(m.db)
			if err != nil {
				return fmt.Errorf("migration %d rollback failed: %w", migration.Version, err)
			}

			previousVersion := targetVersion
			if i > 0 {
				previousVersion = m.migrations[i-1].Version
			}

			err = m.updateVersion(previousVersion)
			if err != nil {
				return fmt.Errorf("failed to update migration version: %w", err)
			}

			log.Printf("Migration %d reverted successfully", migration.Version)
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
			Description: "Create referral_members collection with indexes",
			Up: func(db *mongo.Database) error {
				return createMembersIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("referral_members").Drop(context.Background())
			},
		},
		{
			Version:     2,
			Description: "Create customers collection with indexes",
			Up: func(db *mongo.Database) error {
				return createCustomersIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("customers").Drop(context.Background())
			},
		},
		{
			Version:     3,
			Description: "Create referral_events collection with indexes",
			Up: func(db *mongo.Database) error {
				return createEventsIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("referral_events").Drop(context.Background())
			},
		},
		{
			Version:     4,
			Description: "Create audit and commission log collections with indexes",
			Up: func(db *mongo.Database) error {
				return createLogIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				if err := db.Collection("audit_logs").Drop(context.Background()); err != nil {
					return err
				}
				return db.Collection("commission_logs").Drop(context.Background())
			},
		},
		{
			Version:     5,
			Description: "Create payout_batches collection with indexes",
			Up: func(db *mongo.Database) error {
				return createPayoutIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("payout_batches").Drop(context.Background())
			},
		},
	}
}

func createMembersIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("referral_members")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "referral_code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "referrer_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "seeder_rank", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "fraud_suspect", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func createCustomersIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("customers")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "referrer_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "normalized_phone", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "normalized_address", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// activeEventStatuses are the statuses that keep an event inside the unique
// order_id constraint. Partial index filters cannot express a negation
// (mongod rejects $ne there), so the filter enumerates every status except
// reversed.
var activeEventStatuses = bson.A{"calculated", "approved", "paid", "fraudulent"}

func eventIndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			// One active commission per order. Reversed events fall out of
			// the index so a replayed order after reversal can post again.
			Keys: bson.D{{Key: "order_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{
					{Key: "status", Value: bson.D{{Key: "$in", Value: activeEventStatuses}}},
				}),
		},
		{
			Keys: bson.D{{Key: "referrer_id", Value: 1}, {Key: "period_month", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "customer_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}
}

func createEventsIndexes(db *mongo.Database) error {
	ctx := context.Background()

	_, err := db.Collection("referral_events").Indexes().CreateMany(ctx, eventIndexModels())
	return err
}

func createLogIndexes(db *mongo.Database) error {
	ctx := context.Background()

	auditIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "target_type", Value: 1}, {Key: "target_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "actor", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	if _, err := db.Collection("audit_logs").Indexes().CreateMany(ctx, auditIndexes); err != nil {
		return err
	}

	commissionIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "referrer_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "order_id", Value: 1}},
		},
	}

	_, err := db.Collection("commission_logs").Indexes().CreateMany(ctx, commissionIndexes)
	return err
}

func createPayoutIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("payout_batches")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "batch_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "referrer_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
