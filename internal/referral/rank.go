package referral

import (
	"seedmart/internal/models"
)

// F1Stats describes a referrer's direct F1 population for rank evaluation.
type F1Stats struct {
	// ByRank counts direct F1 members currently holding each rank.
	ByRank map[models.SeederRank]int
	// WithPurchases counts direct F1 customers with at least one
	// delivered order.
	WithPurchases int
}

// CountAtLeast sums direct F1 members holding the given rank or higher.
func (s F1Stats) CountAtLeast(rank models.SeederRank) int {
	total := 0
	for r, n := range s.ByRank {
		if r.AtLeast(rank) {
			total += n
		}
	}
	return total
}

// RankEvaluation is the outcome of a rank eligibility check.
type RankEvaluation struct {
	CanUpgrade bool
	NewRank    models.SeederRank
	NewBonus   float64
}

// EvaluateRank walks the rank ladder from the top down to the first rank
// above current whose requirement is satisfied, so a member always lands on
// the highest achievable rank rather than stepping one level at a time.
// The result is monotonic: it never proposes a rank at or below current,
// and unchanged inputs produce the same answer.
func EvaluateRank(current models.SeederRank, stats F1Stats, setting *models.ReferralSetting) RankEvaluation {
	currentIdx := models.RankIndex(current)
	for i := len(models.SeederRankOrder) - 1; i > currentIdx; i-- {
		candidate := models.SeederRankOrder[i]
		req, ok := setting.RankRequirementFor(candidate)
		if !ok {
			continue
		}
		if rankRequirementMet(req, stats) {
			return RankEvaluation{CanUpgrade: true, NewRank: candidate, NewBonus: req.Bonus}
		}
	}
	return RankEvaluation{CanUpgrade: false, NewRank: current}
}

func rankRequirementMet(req models.RankRequirement, stats F1Stats) bool {
	if req.F1RankRequired != nil {
		return stats.CountAtLeast(*req.F1RankRequired) >= req.F1Required
	}
	return stats.WithPurchases >= req.F1Required
}
