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

type memberRepository struct {
	collection *mongo.Collection
	cache      CacheService
}

func NewMemberRepository(db *mongo.Database, cache CacheService) interfaces.MemberRepository {
	return &memberRepository{
		collection: db.Collection(utils.CollectionMembers),
		cache:      cache,
	}
}

func (r *memberRepository) Create(ctx context.Context, member *models.ReferralMember) error {
	member.ID = primitive.NewObjectID()
	member.ReferralCode = strings.ToUpper(member.ReferralCode)
	member.Version = 1
	now := time.Now()
	if member.CreatedAt.IsZero() {
		member.CreatedAt = now
	}
	member.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, member)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return interfaces.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

func (r *memberRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ReferralMember, error) {
	var member models.ReferralMember
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&member)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &member, nil
}

func (r *memberRepository) GetByEmail(ctx context.Context, email string) (*models.ReferralMember, error) {
	var member models.ReferralMember
	err := r.collection.FindOne(ctx, bson.M{"user_email": strings.ToLower(email)}).Decode(&member)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get member by email: %w", err)
	}
	return &member, nil
}

func (r *memberRepository) GetByReferralCode(ctx context.Context, code string) (*models.ReferralMember, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	cacheKey := fmt.Sprintf("member:code:%s", code)
	if r.cache != nil {
		var cached models.ReferralMember
		if err := r.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	var member models.ReferralMember
	err := r.collection.FindOne(ctx, bson.M{"referral_code": code}).Decode(&member)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get member by referral code: %w", err)
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, cacheKey, &member, defaultCacheTTL)
	}
	return &member, nil
}

// Update writes all mutable fields guarded by the version the caller read.
// Zero matched documents means another writer advanced the version first.
func (r *memberRepository) Update(ctx context.Context, member *models.ReferralMember) error {
	filter := bson.M{
		"_id":     member.ID,
		"version": member.Version,
	}
	update := bson.M{
		"$set": bson.M{
			"status":                   member.Status,
			"seeder_rank":              member.SeederRank,
			"seeder_rank_bonus":        member.SeederRankBonus,
			"unpaid_commission":        member.UnpaidCommission,
			"total_paid_commission":    member.TotalPaidCommission,
			"total_referral_revenue":   member.TotalReferralRevenue,
			"current_month_revenue":    member.CurrentMonthRevenue,
			"current_period":           member.CurrentPeriod,
			"total_referred_customers": member.TotalReferredCustomers,
			"custom_commission_rate":   member.CustomCommissionRate,
			"custom_rate_enabled":      member.CustomRateEnabled,
			"custom_rate_note":         member.CustomRateNote,
			"fraud_score":              member.FraudScore,
			"fraud_flags":              member.FraudFlags,
			"fraud_suspect":            member.FraudSuspect,
			"approved_by":              member.ApprovedBy,
			"approved_at":              member.ApprovedAt,
			"updated_at":               member.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrVersionConflict
	}
	member.Version++

	if r.cache != nil {
		_ = r.cache.Delete(ctx, fmt.Sprintf("member:code:%s", member.ReferralCode))
	}
	return nil
}

func (r *memberRepository) GetF1RankDistribution(ctx context.Context, referrerID primitive.ObjectID) (map[models.SeederRank]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"referrer_id": referrerID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$seeder_rank",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate F1 rank distribution: %w", err)
	}
	defer cursor.Close(ctx)

	distribution := make(map[models.SeederRank]int)
	for cursor.Next(ctx) {
		var row struct {
			Rank  models.SeederRank `bson:"_id"`
			Count int               `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode rank distribution row: %w", err)
		}
		distribution[row.Rank] = row.Count
	}
	return distribution, nil
}

func (r *memberRepository) CountByReferrer(ctx context.Context, referrerID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"referrer_id": referrerID})
	if err != nil {
		return 0, fmt.Errorf("failed to count F1 members: %w", err)
	}
	return count, nil
}

func (r *memberRepository) List(ctx context.Context, status models.MemberStatus, params *utils.PaginationParams) ([]*models.ReferralMember, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return r.findMembersWithFilter(ctx, filter, params)
}

func (r *memberRepository) ListFraudSuspects(ctx context.Context, params *utils.PaginationParams) ([]*models.ReferralMember, int64, error) {
	return r.findMembersWithFilter(ctx, bson.M{"fraud_suspect": true}, params)
}

func (r *memberRepository) findMembersWithFilter(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.ReferralMember, int64, error) {
	if params.Search != "" {
		filter = bson.M{
			"$and": []bson.M{
				filter,
				params.GetSearchFilter([]string{"user_email", "full_name", "referral_code", "phone"}),
			},
		}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count members: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find members: %w", err)
	}
	defer cursor.Close(ctx)

	var members []*models.ReferralMember
	for cursor.Next(ctx) {
		var member models.ReferralMember
		if err := cursor.Decode(&member); err != nil {
			return nil, 0, fmt.Errorf("failed to decode member: %w", err)
		}
		members = append(members, &member)
	}
	return members, total, nil
}
