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

type auditLogRepository struct {
	auditCollection      *mongo.Collection
	commissionCollection *mongo.Collection
}

func NewAuditLogRepository(db *mongo.Database) interfaces.AuditLogRepository {
	return &auditLogRepository{
		auditCollection:      db.Collection(utils.CollectionAuditLogs),
		commissionCollection: db.Collection(utils.CollectionCommissionLogs),
	}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now()

	_, err := r.auditCollection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditLogRepository) CreateCommissionLog(ctx context.Context, entry *models.CommissionLog) error {
	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now()

	_, err := r.commissionCollection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to create commission log: %w", err)
	}
	return nil
}

func (r *auditLogRepository) GetByTarget(ctx context.Context, targetType, targetID string, params *utils.PaginationParams) ([]*models.AuditLog, int64, error) {
	filter := bson.M{
		"target_type": targetType,
		"target_id":   targetID,
	}
	return r.findAuditLogsWithFilter(ctx, filter, params)
}

func (r *auditLogRepository) GetByActor(ctx context.Context, actor string, params *utils.PaginationParams) ([]*models.AuditLog, int64, error) {
	return r.findAuditLogsWithFilter(ctx, bson.M{"actor": actor}, params)
}

func (r *auditLogRepository) GetRecent(ctx context.Context, hours int, params *utils.PaginationParams) ([]*models.AuditLog, int64, error) {
	startTime := time.Now().Add(-time.Duration(hours) * time.Hour)
	return r.findAuditLogsWithFilter(ctx, bson.M{"created_at": bson.M{"$gte": startTime}}, params)
}

func (r *auditLogRepository) GetCommissionLogsByReferrer(ctx context.Context, referrerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.CommissionLog, int64, error) {
	filter := bson.M{"referrer_id": referrerID}

	total, err := r.commissionCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count commission logs: %w", err)
	}

	opts := params.GetSortOptions()
	if params.Sort == "created_at" || params.Sort == "" {
		opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	}

	cursor, err := r.commissionCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find commission logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []*models.CommissionLog
	for cursor.Next(ctx) {
		var log models.CommissionLog
		if err := cursor.Decode(&log); err != nil {
			return nil, 0, fmt.Errorf("failed to decode commission log: %w", err)
		}
		logs = append(logs, &log)
	}
	return logs, total, nil
}

func (r *auditLogRepository) findAuditLogsWithFilter(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.AuditLog, int64, error) {
	if params.Search != "" {
		filter = bson.M{
			"$and": []bson.M{
				filter,
				params.GetSearchFilter([]string{"actor", "action", "target_type", "description"}),
			},
		}
	}

	total, err := r.auditCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	opts := params.GetSortOptions()
	// Audit trails read newest-first by default.
	if params.Sort == "created_at" || params.Sort == "" {
		opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	}

	cursor, err := r.auditCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find audit logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []*models.AuditLog
	for cursor.Next(ctx) {
		var log models.AuditLog
		if err := cursor.Decode(&log); err != nil {
			return nil, 0, fmt.Errorf("failed to decode audit log: %w", err)
		}
		logs = append(logs, &log)
	}
	return logs, total, nil
}
