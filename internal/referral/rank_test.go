package referral

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"seedmart/internal/models"
)

func rankLadder() *models.ReferralSetting {
	rankHGK := models.RankHatGiongKhoe
	rankMK := models.RankMamKhoe
	rankCN := models.RankCayNon
	rankCTT := models.RankCayTruongThanh

	return &models.ReferralSetting{
		SeederRankConfig: []models.RankRequirement{
			{Rank: models.RankHatGiongKhoe, F1Required: 3, Bonus: 0.1},
			{Rank: models.RankMamKhoe, F1Required: 7, F1RankRequired: &rankHGK, Bonus: 0.2},
			{Rank: models.RankCayNon, F1Required: 5, F1RankRequired: &rankMK, Bonus: 0.3},
			{Rank: models.RankCayTruongThanh, F1Required: 7, F1RankRequired: &rankMK, Bonus: 0.5},
			{Rank: models.RankCaySaiQua, F1Required: 7, F1RankRequired: &rankCN, Bonus: 0.7},
			{Rank: models.RankCoThu, F1Required: 7, F1RankRequired: &rankCTT, Bonus: 1.0},
		},
	}
}

func TestCountAtLeast(t *testing.T) {
	stats := F1Stats{
		ByRank: map[models.SeederRank]int{
			models.RankHatGiong:     10,
			models.RankHatGiongKhoe: 4,
			models.RankMamKhoe:      2,
			models.RankCayNon:       1,
		},
	}

	assert.Equal(t, 17, stats.CountAtLeast(models.RankHatGiong))
	assert.Equal(t, 7, stats.CountAtLeast(models.RankHatGiongKhoe))
	assert.Equal(t, 3, stats.CountAtLeast(models.RankMamKhoe))
	assert.Equal(t, 1, stats.CountAtLeast(models.RankCayNon))
	assert.Equal(t, 0, stats.CountAtLeast(models.RankCoThu))
}

func TestEvaluateRankFirstUpgrade(t *testing.T) {
	setting := rankLadder()

	// Three F1 customers with purchases qualifies for Hạt Giống Khỏe.
	eval := EvaluateRank(models.RankHatGiong, F1Stats{WithPurchases: 3}, setting)
	assert.True(t, eval.CanUpgrade)
	assert.Equal(t, models.RankHatGiongKhoe, eval.NewRank)
	assert.Equal(t, 0.1, eval.NewBonus)

	// Two is not enough.
	eval = EvaluateRank(models.RankHatGiong, F1Stats{WithPurchases: 2}, setting)
	assert.False(t, eval.CanUpgrade)
	assert.Equal(t, models.RankHatGiong, eval.NewRank)
}

func TestEvaluateRankByF1Ranks(t *testing.T) {
	setting := rankLadder()

	// Seven F1s at Hạt Giống Khỏe promotes to Mầm Khỏe.
	eval := EvaluateRank(models.RankHatGiongKhoe, F1Stats{
		ByRank: map[models.SeederRank]int{models.RankHatGiongKhoe: 7},
	}, setting)
	assert.True(t, eval.CanUpgrade)
	assert.Equal(t, models.RankMamKhoe, eval.NewRank)
	assert.Equal(t, 0.2, eval.NewBonus)
}

func TestEvaluateRankHigherF1RanksCount(t *testing.T) {
	setting := rankLadder()

	// F1s above the required rank satisfy the requirement too.
	eval := EvaluateRank(models.RankHatGiongKhoe, F1Stats{
		ByRank: map[models.SeederRank]int{
			models.RankHatGiongKhoe: 4,
			models.RankMamKhoe:      3,
		},
	}, setting)
	assert.True(t, eval.CanUpgrade)
	assert.Equal(t, models.RankMamKhoe, eval.NewRank)
}

func TestEvaluateRankJumpsToHighestAchievable(t *testing.T) {
	setting := rankLadder()

	// A member whose F1 forest already satisfies Cây Non skips Mầm Khỏe.
	eval := EvaluateRank(models.RankHatGiongKhoe, F1Stats{
		ByRank: map[models.SeederRank]int{models.RankMamKhoe: 5},
	}, setting)
	assert.True(t, eval.CanUpgrade)
	assert.Equal(t, models.RankCayNon, eval.NewRank)
	assert.Equal(t, 0.3, eval.NewBonus)
}

func TestEvaluateRankIsMonotonic(t *testing.T) {
	setting := rankLadder()

	// Losing qualifying F1s never demotes: the evaluation only ever looks
	// above the current rank.
	eval := EvaluateRank(models.RankCayNon, F1Stats{WithPurchases: 0}, setting)
	assert.False(t, eval.CanUpgrade)
	assert.Equal(t, models.RankCayNon, eval.NewRank)
}

func TestEvaluateRankStableAtTop(t *testing.T) {
	setting := rankLadder()

	eval := EvaluateRank(models.RankCoThu, F1Stats{
		ByRank: map[models.SeederRank]int{models.RankCayTruongThanh: 20},
	}, setting)
	assert.False(t, eval.CanUpgrade)
	assert.Equal(t, models.RankCoThu, eval.NewRank)
}

func TestEvaluateRankDeterministic(t *testing.T) {
	setting := rankLadder()
	stats := F1Stats{
		ByRank:        map[models.SeederRank]int{models.RankHatGiongKhoe: 7},
		WithPurchases: 3,
	}

	first := EvaluateRank(models.RankHatGiong, stats, setting)
	second := EvaluateRank(models.RankHatGiong, stats, setting)
	assert.Equal(t, first, second)
}
