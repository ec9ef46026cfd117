package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommissionTier maps a trailing-monthly-revenue bracket to a base rate.
// MaxRevenue nil means the bracket is open-ended. Rate is percentage points.
type CommissionTier struct {
	MinRevenue int64   `json:"min_revenue" bson:"min_revenue"`
	MaxRevenue *int64  `json:"max_revenue" bson:"max_revenue"`
	Rate       float64 `json:"rate" bson:"rate"`
	Label      string  `json:"label" bson:"label"`
}

// Contains reports whether monthlyRevenue falls inside [min, max).
func (t CommissionTier) Contains(monthlyRevenue int64) bool {
	if monthlyRevenue < t.MinRevenue {
		return false
	}
	return t.MaxRevenue == nil || monthlyRevenue < *t.MaxRevenue
}

// RankRequirement is the upgrade condition for one seeder rank. When
// F1RankRequired is set, the member needs F1Required direct F1 members
// holding that rank or higher; otherwise F1Required direct F1 customers
// with at least one purchase.
type RankRequirement struct {
	Rank           SeederRank  `json:"rank" bson:"rank"`
	F1Required     int         `json:"f1_required" bson:"f1_required"`
	F1RankRequired *SeederRank `json:"f1_rank_required" bson:"f1_rank_required"`
	Bonus          float64     `json:"bonus" bson:"bonus"`
}

// ReferralSetting is the singleton program configuration, admin-editable.
type ReferralSetting struct {
	ID                       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CommissionTiers          []CommissionTier   `json:"commission_tiers" bson:"commission_tiers"`
	SeederRankConfig         []RankRequirement  `json:"seeder_rank_config" bson:"seeder_rank_config"`
	FraudThresholdScore      int                `json:"fraud_threshold_score" bson:"fraud_threshold_score"`
	MinPayoutAmount          int64              `json:"min_payout_amount" bson:"min_payout_amount"`
	EnableReferrerOrderCheck bool               `json:"enable_referrer_order_check" bson:"enable_referrer_order_check"`
	RequireAdminApproval     bool               `json:"require_admin_approval" bson:"require_admin_approval"`
	BlockSelfReferral        bool               `json:"block_self_referral" bson:"block_self_referral"`
	UpdatedBy                string             `json:"updated_by" bson:"updated_by"`
	UpdatedAt                time.Time          `json:"updated_at" bson:"updated_at"`
}

// RankRequirementFor returns the upgrade requirement for the given rank.
func (s *ReferralSetting) RankRequirementFor(rank SeederRank) (RankRequirement, bool) {
	for _, req := range s.SeederRankConfig {
		if req.Rank == rank {
			return req, true
		}
	}
	return RankRequirement{}, false
}

// RankBonusFor returns the commission bonus attached to a rank. The base
// rank carries no bonus unless configured.
func (s *ReferralSetting) RankBonusFor(rank SeederRank) float64 {
	if req, ok := s.RankRequirementFor(rank); ok {
		return req.Bonus
	}
	return 0
}

// Validate enforces the configuration invariants the commission calculator
// and rank manager rely on. A failure here is fatal at startup: the engine
// must never run commission math against a malformed table.
func (s *ReferralSetting) Validate() error {
	if len(s.CommissionTiers) == 0 {
		return fmt.Errorf("commission tiers: table is empty")
	}
	if s.CommissionTiers[0].MinRevenue != 0 {
		return fmt.Errorf("commission tiers: first tier must start at 0, got %d", s.CommissionTiers[0].MinRevenue)
	}
	for i, tier := range s.CommissionTiers {
		if tier.Rate < 0 {
			return fmt.Errorf("commission tiers: tier %d has negative rate %.2f", i, tier.Rate)
		}
		last := i == len(s.CommissionTiers)-1
		if last {
			if tier.MaxRevenue != nil {
				return fmt.Errorf("commission tiers: last tier must be open-ended")
			}
			continue
		}
		if tier.MaxRevenue == nil {
			return fmt.Errorf("commission tiers: tier %d is open-ended but not last", i)
		}
		if *tier.MaxRevenue <= tier.MinRevenue {
			return fmt.Errorf("commission tiers: tier %d has empty interval [%d, %d)", i, tier.MinRevenue, *tier.MaxRevenue)
		}
		next := s.CommissionTiers[i+1]
		if next.MinRevenue != *tier.MaxRevenue {
			return fmt.Errorf("commission tiers: gap or overlap between tier %d and %d", i, i+1)
		}
		if next.Rate < tier.Rate {
			return fmt.Errorf("commission tiers: rate must be non-decreasing, tier %d drops from %.2f to %.2f", i+1, tier.Rate, next.Rate)
		}
	}

	seen := make(map[SeederRank]bool, len(s.SeederRankConfig))
	for _, req := range s.SeederRankConfig {
		if RankIndex(req.Rank) < 0 {
			return fmt.Errorf("rank config: unknown rank %q", req.Rank)
		}
		if seen[req.Rank] {
			return fmt.Errorf("rank config: duplicate entry for rank %q", req.Rank)
		}
		seen[req.Rank] = true
		if req.F1Required <= 0 {
			return fmt.Errorf("rank config: rank %q requires a positive f1_required", req.Rank)
		}
		if req.F1RankRequired != nil && RankIndex(*req.F1RankRequired) < 0 {
			return fmt.Errorf("rank config: rank %q references unknown f1_rank_required %q", req.Rank, *req.F1RankRequired)
		}
		if req.Bonus < 0 {
			return fmt.Errorf("rank config: rank %q has negative bonus", req.Rank)
		}
	}
	// Every rank above the base must be achievable.
	for _, rank := range SeederRankOrder[1:] {
		if !seen[rank] {
			return fmt.Errorf("rank config: missing requirement for achievable rank %q", rank)
		}
	}

	if s.FraudThresholdScore <= 0 || s.FraudThresholdScore > 100 {
		return fmt.Errorf("fraud threshold score must be in (0, 100], got %d", s.FraudThresholdScore)
	}
	if s.MinPayoutAmount < 0 {
		return fmt.Errorf("min payout amount must not be negative")
	}
	return nil
}
