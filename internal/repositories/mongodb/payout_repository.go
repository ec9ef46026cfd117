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
)

type payoutRepository struct {
	collection *mongo.Collection
}

func NewPayoutRepository(db *mongo.Database) interfaces.PayoutRepository {
	return &payoutRepository{
		collection: db.Collection(utils.CollectionPayouts),
	}
}

func (r *payoutRepository) Create(ctx context.Context, batch *models.PayoutBatch) error {
	batch.ID = primitive.NewObjectID()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, batch)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return interfaces.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create payout batch: %w", err)
	}
	return nil
}

func (r *payoutRepository) GetByBatchID(ctx context.Context, batchID string) (*models.PayoutBatch, error) {
	var batch models.PayoutBatch
	err := r.collection.FindOne(ctx, bson.M{"batch_id": batchID}).Decode(&batch)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payout batch: %w", err)
	}
	return &batch, nil
}

func (r *payoutRepository) ListByReferrer(ctx context.Context, referrerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.PayoutBatch, int64, error) {
	filter := bson.M{"referrer_id": referrerID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count payout batches: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find payout batches: %w", err)
	}
	defer cursor.Close(ctx)

	var batches []*models.PayoutBatch
	for cursor.Next(ctx) {
		var batch models.PayoutBatch
		if err := cursor.Decode(&batch); err != nil {
			return nil, 0, fmt.Errorf("failed to decode payout batch: %w", err)
		}
		batches = append(batches, &batch)
	}
	return batches, total, nil
}
