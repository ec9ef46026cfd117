package interfaces

import (
	"context"

	"seedmart/internal/models"
	"seedmart/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PayoutRepository interface {
	Create(ctx context.Context, batch *models.PayoutBatch) error
	GetByBatchID(ctx context.Context, batchID string) (*models.PayoutBatch, error)
	ListByReferrer(ctx context.Context, referrerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.PayoutBatch, int64, error)
}
