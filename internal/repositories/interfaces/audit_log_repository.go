package interfaces

import (
	"context"

	"seedmart/internal/models"
	"seedmart/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditLogRepository is append-only: entries are created and queried, never
// updated or deleted.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	CreateCommissionLog(ctx context.Context, entry *models.CommissionLog) error

	// Admin surface
	GetByTarget(ctx context.Context, targetType, targetID string, params *utils.PaginationParams) ([]*models.AuditLog, int64, error)
	GetByActor(ctx context.Context, actor string, params *utils.PaginationParams) ([]*models.AuditLog, int64, error)
	GetRecent(ctx context.Context, hours int, params *utils.PaginationParams) ([]*models.AuditLog, int64, error)
	GetCommissionLogsByReferrer(ctx context.Context, referrerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.CommissionLog, int64, error)
}
