package mongodb

import (
	"context"
	"fmt"
	"time"

	"seedmart/internal/models"
	"seedmart/internal/repositories/interfaces"
	"seedmart/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type settingsRepository struct {
	collection *mongo.Collection
}

func NewSettingsRepository(db *mongo.Database) interfaces.SettingsRepository {
	return &settingsRepository{
		collection: db.Collection(utils.CollectionSettings),
	}
}

// Get returns the singleton settings document.
func (r *settingsRepository) Get(ctx context.Context) (*models.ReferralSetting, error) {
	var setting models.ReferralSetting
	err := r.collection.FindOne(ctx, bson.M{}).Decode(&setting)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get referral settings: %w", err)
	}
	return &setting, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, setting *models.ReferralSetting) error {
	setting.UpdatedAt = time.Now()
	if setting.ID.IsZero() {
		setting.ID = primitive.NewObjectID()
	}

	_, err := r.collection.ReplaceOne(
		ctx,
		bson.M{"_id": setting.ID},
		setting,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert referral settings: %w", err)
	}
	return nil
}
