package interfaces

import (
	"context"

	"seedmart/internal/models"
	"seedmart/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventRepository interface {
	// Create inserts a new referral event. Inserting a second non-reversed
	// event for the same order_id hits the partial unique index and
	// returns ErrDuplicateKey; the engine then returns the existing event
	// instead of double-paying.
	Create(ctx context.Context, event *models.ReferralEvent) error

	GetByID(ctx context.Context, id primitive.ObjectID) (*models.ReferralEvent, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.ReferralEvent, error)

	// GetActiveByOrderID resolves the single non-reversed event for an
	// order, or ErrNotFound.
	GetActiveByOrderID(ctx context.Context, orderID string) (*models.ReferralEvent, error)

	Update(ctx context.Context, event *models.ReferralEvent) error

	// Aggregates over a referrer's events in one period month. Reversed
	// and fraudulent events never count toward revenue.
	SumRevenueByReferrerAndPeriod(ctx context.Context, referrerID primitive.ObjectID, period string) (int64, error)
	CountByReferrerAndPeriod(ctx context.Context, referrerID primitive.ObjectID, period string, reversed bool) (int, error)

	// Admin surface
	ListByReferrer(ctx context.Context, referrerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.ReferralEvent, int64, error)
	ListByStatus(ctx context.Context, status models.ReferralEventStatus, params *utils.PaginationParams) ([]*models.ReferralEvent, int64, error)
}
