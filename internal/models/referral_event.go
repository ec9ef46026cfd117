package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReferralEventStatus string

const (
	EventStatusCalculated ReferralEventStatus = "calculated"
	EventStatusApproved   ReferralEventStatus = "approved"
	EventStatusPaid       ReferralEventStatus = "paid"
	EventStatusReversed   ReferralEventStatus = "reversed"
	EventStatusFraudulent ReferralEventStatus = "fraudulent"
)

// ReferralEvent is the commission record for one delivered order. At most
// one non-reversed event exists per order_id; a refund flips the same event
// to reversed instead of appending a compensating record, so the
// order-to-event mapping stays 1:1.
type ReferralEvent struct {
	ID               primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	ReferrerID       primitive.ObjectID  `json:"referrer_id" bson:"referrer_id"`
	CustomerID       primitive.ObjectID  `json:"customer_id" bson:"customer_id"`
	OrderID          string              `json:"order_id" bson:"order_id" validate:"required"`
	OrderAmount      int64               `json:"order_amount" bson:"order_amount"`
	CommissionRate   float64             `json:"commission_rate" bson:"commission_rate"`
	CommissionAmount int64               `json:"commission_amount" bson:"commission_amount"`
	TierLabel        string              `json:"tier_label" bson:"tier_label"`
	Status           ReferralEventStatus `json:"status" bson:"status"`
	PeriodMonth      string              `json:"period_month" bson:"period_month"`
	FraudSuspect     bool                `json:"fraud_suspect" bson:"fraud_suspect"`
	ApprovedBy       string              `json:"approved_by" bson:"approved_by"`
	ApprovedAt       *time.Time          `json:"approved_at" bson:"approved_at"`
	PaidBatchID      string              `json:"paid_batch_id" bson:"paid_batch_id"`
	PaidAt           *time.Time          `json:"paid_at" bson:"paid_at"`
	ReversedAt       *time.Time          `json:"reversed_at" bson:"reversed_at"`
	ReversalReason   string              `json:"reversal_reason" bson:"reversal_reason"`
	CreatedAt        time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at" bson:"updated_at"`
}

// CountsTowardRevenue reports whether the event contributes to a referrer's
// monthly F1 revenue aggregates.
func (e *ReferralEvent) CountsTowardRevenue() bool {
	return e.Status != EventStatusReversed && e.Status != EventStatusFraudulent
}
