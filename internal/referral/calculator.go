package referral

import (
	"math"

	"seedmart/internal/models"
)

// TierResult is the outcome of a commission tier lookup.
type TierResult struct {
	Rate  float64
	Label string
}

// LookupTier selects the commission tier whose [min, max) bracket contains
// the referrer's trailing monthly F1 revenue. The table is validated at
// startup to be contiguous, non-overlapping and open-ended on the last
// tier, so the walk always terminates with a match for non-negative
// revenue.
func LookupTier(tiers []models.CommissionTier, monthlyRevenue int64) TierResult {
	for _, tier := range tiers {
		if tier.Contains(monthlyRevenue) {
			return TierResult{Rate: tier.Rate, Label: tier.Label}
		}
	}
	// Unreachable with a validated table; negative revenue falls through
	// to the base tier.
	if len(tiers) > 0 {
		return TierResult{Rate: tiers[0].Rate, Label: tiers[0].Label}
	}
	return TierResult{}
}

// TotalRate combines the tier rate with the member's rank bonus, unless a
// custom rate override is enabled, in which case the override wins outright.
func TotalRate(tierRate, rankBonus float64, customRate *float64, customEnabled bool) float64 {
	if customEnabled && customRate != nil {
		return *customRate
	}
	return tierRate + rankBonus
}

// CommissionAmount computes the VND commission for a single order at the
// given percentage rate, rounded half-up to a whole dong. The tier is
// chosen from aggregate monthly revenue but the amount is always per-order.
func CommissionAmount(orderAmount int64, rate float64) int64 {
	if orderAmount <= 0 || rate <= 0 {
		return 0
	}
	return int64(math.Floor(float64(orderAmount)*rate/100 + 0.5))
}
