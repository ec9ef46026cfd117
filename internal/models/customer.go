package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Customer is a referred buyer (an F1 when referrer_id is set). Once
// referral_locked is true the referrer binding is permanent except through
// an audited admin reassignment.
type Customer struct {
	ID                primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Email             string              `json:"email" bson:"email" validate:"required,email"`
	FullName          string              `json:"full_name" bson:"full_name"`
	Phone             string              `json:"phone" bson:"phone"`
	NormalizedPhone   string              `json:"-" bson:"normalized_phone"`
	Address           string              `json:"address" bson:"address"`
	NormalizedAddress string              `json:"-" bson:"normalized_address"`
	ReferrerID        *primitive.ObjectID `json:"referrer_id" bson:"referrer_id"`
	ReferralCodeUsed  string              `json:"referral_code_used" bson:"referral_code_used"`
	ReferredDate      *time.Time          `json:"referred_date" bson:"referred_date"`
	ReferralLocked    bool                `json:"referral_locked" bson:"referral_locked"`
	TotalOrders       int                 `json:"total_orders" bson:"total_orders"`
	CreatedAt         time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" bson:"updated_at"`
}

func (c *Customer) HasReferrer() bool {
	return c.ReferrerID != nil
}
