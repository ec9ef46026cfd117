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

type eventRepository struct {
	collection *mongo.Collection
	cache      CacheService
}

func NewEventRepository(db *mongo.Database, cache CacheService) interfaces.EventRepository {
	return &eventRepository{
		collection: db.Collection(utils.CollectionEvents),
		cache:      cache,
	}
}

// Create relies on the partial unique index over order_id (non-reversed
// events only) as the atomic check-and-create: the insert either wins the
// race or comes back as ErrDuplicateKey.
func (r *eventRepository) Create(ctx context.Context, event *models.ReferralEvent) error {
	event.ID = primitive.NewObjectID()
	now := time.Now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return interfaces.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create referral event: %w", err)
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ReferralEvent, error) {
	var event models.ReferralEvent
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get referral event: %w", err)
	}
	return &event, nil
}

func (r *eventRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.ReferralEvent, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find referral events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*models.ReferralEvent
	for cursor.Next(ctx) {
		var event models.ReferralEvent
		if err := cursor.Decode(&event); err != nil {
			return nil, fmt.Errorf("failed to decode referral event: %w", err)
		}
		events = append(events, &event)
	}
	return events, nil
}

func (r *eventRepository) GetActiveByOrderID(ctx context.Context, orderID string) (*models.ReferralEvent, error) {
	var event models.ReferralEvent
	err := r.collection.FindOne(ctx, bson.M{
		"order_id": orderID,
		"status":   bson.M{"$ne": models.EventStatusReversed},
	}).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event by order id: %w", err)
	}
	return &event, nil
}

func (r *eventRepository) Update(ctx context.Context, event *models.ReferralEvent) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": event.ID},
		bson.M{"$set": bson.M{
			"status":          event.Status,
			"fraud_suspect":   event.FraudSuspect,
			"approved_by":     event.ApprovedBy,
			"approved_at":     event.ApprovedAt,
			"paid_batch_id":   event.PaidBatchID,
			"paid_at":         event.PaidAt,
			"reversed_at":     event.ReversedAt,
			"reversal_reason": event.ReversalReason,
			"updated_at":      event.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update referral event: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *eventRepository) SumRevenueByReferrerAndPeriod(ctx context.Context, referrerID primitive.ObjectID, period string) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"referrer_id":  referrerID,
			"period_month": period,
			"status": bson.M{"$nin": bson.A{
				models.EventStatusReversed,
				models.EventStatusFraudulent,
			}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$order_amount"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum referrer revenue: %w", err)
	}
	defer cursor.Close(ctx)

	var row struct {
		Total int64 `bson:"total"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&row); err != nil {
			return 0, fmt.Errorf("failed to decode revenue sum: %w", err)
		}
	}
	return row.Total, nil
}

func (r *eventRepository) CountByReferrerAndPeriod(ctx context.Context, referrerID primitive.ObjectID, period string, reversed bool) (int, error) {
	filter := bson.M{
		"referrer_id":  referrerID,
		"period_month": period,
	}
	if reversed {
		filter["status"] = models.EventStatusReversed
	} else {
		filter["status"] = bson.M{"$ne": models.EventStatusReversed}
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count referral events: %w", err)
	}
	return int(count), nil
}

func (r *eventRepository) ListByReferrer(ctx context.Context, referrerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.ReferralEvent, int64, error) {
	return r.findEventsWithFilter(ctx, bson.M{"referrer_id": referrerID}, params)
}

func (r *eventRepository) ListByStatus(ctx context.Context, status models.ReferralEventStatus, params *utils.PaginationParams) ([]*models.ReferralEvent, int64, error) {
	return r.findEventsWithFilter(ctx, bson.M{"status": status}, params)
}

func (r *eventRepository) findEventsWithFilter(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.ReferralEvent, int64, error) {
	if params.Search != "" {
		filter = bson.M{
			"$and": []bson.M{
				filter,
				params.GetSearchFilter([]string{"order_id", "period_month"}),
			},
		}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count referral events: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find referral events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*models.ReferralEvent
	for cursor.Next(ctx) {
		var event models.ReferralEvent
		if err := cursor.Decode(&event); err != nil {
			return nil, 0, fmt.Errorf("failed to decode referral event: %w", err)
		}
		events = append(events, &event)
	}
	return events, total, nil
}
