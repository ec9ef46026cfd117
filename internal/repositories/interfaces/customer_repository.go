package interfaces

import (
	"context"

	"seedmart/internal/models"
	"seedmart/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CustomerRepository interface {
	// Basic operations
	Create(ctx context.Context, customer *models.Customer) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error)
	GetByEmail(ctx context.Context, email string) (*models.Customer, error)
	Update(ctx context.Context, customer *models.Customer) error

	// Rank evaluation input: direct F1 customers with at least one
	// delivered order.
	CountWithPurchasesByReferrer(ctx context.Context, referrerID primitive.ObjectID) (int, error)

	// Fraud input: size of the largest cluster of the referrer's F1
	// customers sharing one normalized phone or address.
	MaxSharedContactCluster(ctx context.Context, referrerID primitive.ObjectID) (int, error)

	// Admin surface
	ListByReferrer(ctx context.Context, referrerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Customer, int64, error)
}
