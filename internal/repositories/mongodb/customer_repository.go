package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"seedmart/internal/models"
	"seedmart/internal/repositories/interfaces"
	"seedmart/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type customerRepository struct {
	collection *mongo.Collection
	cache      CacheService
}

func NewCustomerRepository(db *mongo.Database, cache CacheService) interfaces.CustomerRepository {
	return &customerRepository{
		collection: db.Collection(utils.CollectionCustomers),
		cache:      cache,
	}
}

func (r *customerRepository) Create(ctx context.Context, customer *models.Customer) error {
	customer.ID = primitive.NewObjectID()
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	customer.NormalizedPhone = utils.NormalizePhone(customer.Phone)
	customer.NormalizedAddress = utils.NormalizeAddress(customer.Address)
	now := time.Now()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, customer)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return interfaces.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (r *customerRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	var customer models.Customer
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&customer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := r.collection.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&customer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get customer by email: %w", err)
	}
	return &customer, nil
}

func (r *customerRepository) Update(ctx context.Context, customer *models.Customer) error {
	customer.NormalizedPhone = utils.NormalizePhone(customer.Phone)
	customer.NormalizedAddress = utils.NormalizeAddress(customer.Address)

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": customer.ID},
		bson.M{"$set": bson.M{
			"phone":              customer.Phone,
			"normalized_phone":   customer.NormalizedPhone,
			"address":            customer.Address,
			"normalized_address": customer.NormalizedAddress,
			"referrer_id":        customer.ReferrerID,
			"referral_code_used": customer.ReferralCodeUsed,
			"referred_date":      customer.ReferredDate,
			"referral_locked":    customer.ReferralLocked,
			"total_orders":       customer.TotalOrders,
			"updated_at":         customer.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return nil
}

func (r *customerRepository) CountWithPurchasesByReferrer(ctx context.Context, referrerID primitive.ObjectID) (int, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"referrer_id":  referrerID,
		"total_orders": bson.M{"$gt": 0},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count purchasing F1s: %w", err)
	}
	return int(count), nil
}

// MaxSharedContactCluster groups the referrer's F1 customers by normalized
// phone and by normalized address and returns the size of the biggest
// group. Several fake buyers registered by one person tend to share one of
// the two.
func (r *customerRepository) MaxSharedContactCluster(ctx context.Context, referrerID primitive.ObjectID) (int, error) {
	max := 0
	for _, field := range []string{"$normalized_phone", "$normalized_address"} {
		pipeline := mongo.Pipeline{
			{{Key: "$match", Value: bson.M{
				"referrer_id": referrerID,
				strings.TrimPrefix(field, "$"): bson.M{"$nin": bson.A{"", nil}},
			}}},
			{{Key: "$group", Value: bson.M{
				"_id":   field,
				"count": bson.M{"$sum": 1},
			}}},
			{{Key: "$sort", Value: bson.M{"count": -1}}},
			{{Key: "$limit", Value: 1}},
		}

		cursor, err := r.collection.Aggregate(ctx, pipeline)
		if err != nil {
			return 0, fmt.Errorf("failed to aggregate contact clusters: %w", err)
		}

		var row struct {
			Count int `bson:"count"`
		}
		if cursor.Next(ctx) {
			if err := cursor.Decode(&row); err != nil {
				cursor.Close(ctx)
				return 0, fmt.Errorf("failed to decode contact cluster: %w", err)
			}
			if row.Count > max {
				max = row.Count
			}
		}
		cursor.Close(ctx)
	}
	return max, nil
}

func (r *customerRepository) ListByReferrer(ctx context.Context, referrerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Customer, int64, error) {
	filter := bson.M{"referrer_id": referrerID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find customers: %w", err)
	}
	defer cursor.Close(ctx)

	var customers []*models.Customer
	for cursor.Next(ctx) {
		var customer models.Customer
		if err := cursor.Decode(&customer); err != nil {
			return nil, 0, fmt.Errorf("failed to decode customer: %w", err)
		}
		customers = append(customers, &customer)
	}
	return customers, total, nil
}
