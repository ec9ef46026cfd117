package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MemberStatus string

const (
	MemberStatusPendingApproval MemberStatus = "pending_approval"
	MemberStatusActive          MemberStatus = "active"
	MemberStatusSuspended       MemberStatus = "suspended"
	MemberStatusFraudSuspect    MemberStatus = "fraud_suspect"
)

// SeederRank is the 7-level CTV progression, lowest to highest.
type SeederRank string

const (
	RankHatGiong       SeederRank = "hat_giong"
	RankHatGiongKhoe   SeederRank = "hat_giong_khoe"
	RankMamKhoe        SeederRank = "mam_khoe"
	RankCayNon         SeederRank = "cay_non"
	RankCayTruongThanh SeederRank = "cay_truong_thanh"
	RankCaySaiQua      SeederRank = "cay_sai_qua"
	RankCoThu          SeederRank = "co_thu"
)

// SeederRankOrder lists every rank in ascending order. Rank comparisons and
// the upgrade walk in the rank manager are all defined against this slice.
var SeederRankOrder = []SeederRank{
	RankHatGiong,
	RankHatGiongKhoe,
	RankMamKhoe,
	RankCayNon,
	RankCayTruongThanh,
	RankCaySaiQua,
	RankCoThu,
}

var seederRankIndex = func() map[SeederRank]int {
	m := make(map[SeederRank]int, len(SeederRankOrder))
	for i, r := range SeederRankOrder {
		m[r] = i
	}
	return m
}()

// RankIndex returns the position of r in the ladder, or -1 for unknown ranks.
func RankIndex(r SeederRank) int {
	idx, ok := seederRankIndex[r]
	if !ok {
		return -1
	}
	return idx
}

func (r SeederRank) AtLeast(other SeederRank) bool {
	return RankIndex(r) >= RankIndex(other)
}

var seederRankLabels = map[SeederRank]string{
	RankHatGiong:       "Hạt Giống",
	RankHatGiongKhoe:   "Hạt Giống Khỏe",
	RankMamKhoe:        "Mầm Khỏe",
	RankCayNon:         "Cây Non",
	RankCayTruongThanh: "Cây Trưởng Thành",
	RankCaySaiQua:      "Cây Sai Quả",
	RankCoThu:          "Cổ Thụ",
}

func (r SeederRank) Label() string {
	if label, ok := seederRankLabels[r]; ok {
		return label
	}
	return string(r)
}

// ReferralMember is a CTV: a program participant who refers customers and
// earns tiered commission on their orders. Monetary amounts are VND.
type ReferralMember struct {
	ID                     primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	UserEmail              string              `json:"user_email" bson:"user_email" validate:"required,email"`
	FullName               string              `json:"full_name" bson:"full_name"`
	Phone                  string              `json:"phone" bson:"phone"`
	ReferralCode           string              `json:"referral_code" bson:"referral_code" validate:"required"`
	ReferrerID             *primitive.ObjectID `json:"referrer_id" bson:"referrer_id"`
	Status                 MemberStatus        `json:"status" bson:"status"`
	SeederRank             SeederRank          `json:"seeder_rank" bson:"seeder_rank"`
	SeederRankBonus        float64             `json:"seeder_rank_bonus" bson:"seeder_rank_bonus"`
	UnpaidCommission       int64               `json:"unpaid_commission" bson:"unpaid_commission"`
	TotalPaidCommission    int64               `json:"total_paid_commission" bson:"total_paid_commission"`
	TotalReferralRevenue   int64               `json:"total_referral_revenue" bson:"total_referral_revenue"`
	CurrentMonthRevenue    int64               `json:"current_month_revenue" bson:"current_month_revenue"`
	CurrentPeriod          string              `json:"current_period" bson:"current_period"`
	TotalReferredCustomers int                 `json:"total_referred_customers" bson:"total_referred_customers"`
	CustomCommissionRate   *float64            `json:"custom_commission_rate" bson:"custom_commission_rate"`
	CustomRateEnabled      bool                `json:"custom_rate_enabled" bson:"custom_rate_enabled"`
	CustomRateNote         string              `json:"custom_rate_note" bson:"custom_rate_note"`
	FraudScore             int                 `json:"fraud_score" bson:"fraud_score"`
	FraudFlags             []string            `json:"fraud_flags" bson:"fraud_flags"`
	FraudSuspect           bool                `json:"fraud_suspect" bson:"fraud_suspect"`
	ApprovedBy             string              `json:"approved_by" bson:"approved_by"`
	ApprovedAt             *time.Time          `json:"approved_at" bson:"approved_at"`
	Version                int64               `json:"-" bson:"version"`
	CreatedAt              time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at" bson:"updated_at"`
}

// IsEligibleForCommission reports whether orders referred by this member
// currently accrue commission. Suspended and unapproved members accrue
// nothing; fraud_suspect is an advisory flag and does not block accrual.
func (m *ReferralMember) IsEligibleForCommission() bool {
	return m.Status == MemberStatusActive
}

// MonthRevenue returns the member's running F1 revenue for the given
// period, treating a stale period as a fresh month.
func (m *ReferralMember) MonthRevenue(period string) int64 {
	if m.CurrentPeriod != period {
		return 0
	}
	return m.CurrentMonthRevenue
}
