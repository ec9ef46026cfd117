package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditAction string

const (
	AuditActionCreate         AuditAction = "create"
	AuditActionUpdate         AuditAction = "update"
	AuditActionApprove        AuditAction = "approve"
	AuditActionReverse        AuditAction = "reverse"
	AuditActionPayout         AuditAction = "payout"
	AuditActionReassign       AuditAction = "reassign"
	AuditActionRankUpgrade    AuditAction = "rank_upgrade"
	AuditActionFraudFlag      AuditAction = "fraud_flag"
	AuditActionCustomRate     AuditAction = "custom_rate"
	AuditActionStatusChange   AuditAction = "status_change"
	AuditActionSettingsChange AuditAction = "settings_change"
)

// SystemActor attributes audit entries produced by the engine itself rather
// than an admin.
const SystemActor = "system"

// AuditLog is an append-only causal trail entry. Entries are never mutated
// or deleted.
type AuditLog struct {
	ID          primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	Actor       string                 `json:"actor" bson:"actor" validate:"required"`
	Action      AuditAction            `json:"action" bson:"action" validate:"required"`
	TargetType  string                 `json:"target_type" bson:"target_type" validate:"required"`
	TargetID    string                 `json:"target_id" bson:"target_id"`
	OldValues   map[string]interface{} `json:"old_values" bson:"old_values"`
	NewValues   map[string]interface{} `json:"new_values" bson:"new_values"`
	Description string                 `json:"description" bson:"description"`
	CreatedAt   time.Time              `json:"created_at" bson:"created_at"`
}

// CommissionLog records every commission posting and reversal with the
// inputs that produced the amount, for reconciliation against events.
type CommissionLog struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ReferrerID       primitive.ObjectID `json:"referrer_id" bson:"referrer_id"`
	EventID          primitive.ObjectID `json:"event_id" bson:"event_id"`
	OrderID          string             `json:"order_id" bson:"order_id"`
	OrderAmount      int64              `json:"order_amount" bson:"order_amount"`
	MonthlyRevenue   int64              `json:"monthly_revenue" bson:"monthly_revenue"`
	TierLabel        string             `json:"tier_label" bson:"tier_label"`
	TierRate         float64            `json:"tier_rate" bson:"tier_rate"`
	RankBonus        float64            `json:"rank_bonus" bson:"rank_bonus"`
	CustomRateUsed   bool               `json:"custom_rate_used" bson:"custom_rate_used"`
	AppliedRate      float64            `json:"applied_rate" bson:"applied_rate"`
	CommissionAmount int64              `json:"commission_amount" bson:"commission_amount"`
	Reversal         bool               `json:"reversal" bson:"reversal"`
	Description      string             `json:"description" bson:"description"`
	CreatedAt        time.Time          `json:"created_at" bson:"created_at"`
}
