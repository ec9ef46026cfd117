package interfaces

import (
	"context"

	"seedmart/internal/models"
	"seedmart/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MemberRepository interface {
	// Basic operations
	Create(ctx context.Context, member *models.ReferralMember) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.ReferralMember, error)
	GetByEmail(ctx context.Context, email string) (*models.ReferralMember, error)
	GetByReferralCode(ctx context.Context, code string) (*models.ReferralMember, error)

	// Update writes every mutable field, guarded by the member's version.
	// A lost race returns ErrVersionConflict; callers re-read and retry.
	Update(ctx context.Context, member *models.ReferralMember) error

	// Rank evaluation inputs
	GetF1RankDistribution(ctx context.Context, referrerID primitive.ObjectID) (map[models.SeederRank]int, error)
	CountByReferrer(ctx context.Context, referrerID primitive.ObjectID) (int64, error)

	// Admin surface
	List(ctx context.Context, status models.MemberStatus, params *utils.PaginationParams) ([]*models.ReferralMember, int64, error)
	ListFraudSuspects(ctx context.Context, params *utils.PaginationParams) ([]*models.ReferralMember, int64, error)
}
