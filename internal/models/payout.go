package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PayoutBatch groups approved referral events paid out together to one
// member. The batch is recorded before the events flip to paid so a payout
// can always be traced back to the admin who ran it.
type PayoutBatch struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	BatchID     string               `json:"batch_id" bson:"batch_id" validate:"required"`
	ReferrerID  primitive.ObjectID   `json:"referrer_id" bson:"referrer_id"`
	EventIDs    []primitive.ObjectID `json:"event_ids" bson:"event_ids"`
	TotalAmount int64                `json:"total_amount" bson:"total_amount"`
	ProcessedBy string               `json:"processed_by" bson:"processed_by"`
	CreatedAt   time.Time            `json:"created_at" bson:"created_at"`
}
