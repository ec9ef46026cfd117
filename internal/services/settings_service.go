package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seedmart/internal/models"
	"seedmart/internal/referral"
	"seedmart/internal/repositories/interfaces"
	"seedmart/internal/utils"
	"seedmart/pkg/logger"
)

const settingsCacheKey = "referral:settings"

// CacheService is the slice of the cache the services need. Satisfied by
// pkg/cache.RedisCache.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// SettingsService implements referral.SettingsProvider over the singleton
// settings document, with a short-TTL cache in front. Every document that
// leaves this service has passed Validate; malformed configuration aborts
// startup instead of leaking into commission math.
type SettingsService struct {
	repo     interfaces.SettingsRepository
	cache    CacheService
	cacheTTL time.Duration
	logger   *logger.Logger
}

func NewSettingsService(repo interfaces.SettingsRepository, cache CacheService, log *logger.Logger) *SettingsService {
	return &SettingsService{
		repo:     repo,
		cache:    cache,
		cacheTTL: time.Minute,
		logger:   log,
	}
}

// Load runs at startup. It seeds the default program configuration when
// none exists yet and fails hard on an invalid stored document.
func (s *SettingsService) Load(ctx context.Context) error {
	setting, err := s.repo.Get(ctx)
	if errors.Is(err, interfaces.ErrNotFound) {
		setting = DefaultReferralSetting()
		if err := s.repo.Upsert(ctx, setting); err != nil {
			return fmt.Errorf("failed to seed default referral settings: %w", err)
		}
		s.logger.Info("seeded default referral settings")
	} else if err != nil {
		return err
	}

	if err := setting.Validate(); err != nil {
		return fmt.Errorf("%w: %v", referral.ErrConfiguration, err)
	}
	return nil
}

func (s *SettingsService) Get(ctx context.Context) (*models.ReferralSetting, error) {
	if s.cache != nil {
		var cached models.ReferralSetting
		if err := s.cache.Get(ctx, settingsCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	setting, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load referral settings: %w", err)
	}
	if err := setting.Validate(); err != nil {
		// A bad document snuck past the update path, e.g. edited by
		// hand. Refuse to compute with it.
		return nil, fmt.Errorf("%w: %v", referral.ErrConfiguration, err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, settingsCacheKey, setting, s.cacheTTL)
	}
	return setting, nil
}

// Update validates and persists an admin edit, then invalidates the cache.
func (s *SettingsService) Update(ctx context.Context, setting *models.ReferralSetting, adminEmail string) error {
	if err := setting.Validate(); err != nil {
		return fmt.Errorf("%w: %v", referral.ErrConfiguration, err)
	}

	existing, err := s.repo.Get(ctx)
	if err == nil {
		setting.ID = existing.ID
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return err
	}

	setting.UpdatedBy = adminEmail
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return err
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, settingsCacheKey)
	}
	s.logger.WithField("admin", adminEmail).Info("referral settings updated")
	return nil
}

// DefaultReferralSetting is the stock Vietnamese program configuration:
// three revenue tiers and the seven-rank seeder ladder.
func DefaultReferralSetting() *models.ReferralSetting {
	tier2 := int64(10_000_000)
	tier3 := int64(50_000_000)
	rankHGK := models.RankHatGiongKhoe
	rankMK := models.RankMamKhoe
	rankCN := models.RankCayNon
	rankCTT := models.RankCayTruongThanh

	return &models.ReferralSetting{
		CommissionTiers: []models.CommissionTier{
			{MinRevenue: 0, MaxRevenue: &tier2, Rate: 1.0, Label: "Khởi Đầu"},
			{MinRevenue: tier2, MaxRevenue: &tier3, Rate: 2.0, Label: "Phát Triển"},
			{MinRevenue: tier3, MaxRevenue: nil, Rate: 3.0, Label: "Bứt Phá"},
		},
		SeederRankConfig: []models.RankRequirement{
			{Rank: models.RankHatGiongKhoe, F1Required: 3, Bonus: 0.1},
			{Rank: models.RankMamKhoe, F1Required: 7, F1RankRequired: &rankHGK, Bonus: 0.2},
			{Rank: models.RankCayNon, F1Required: 5, F1RankRequired: &rankMK, Bonus: 0.3},
			{Rank: models.RankCayTruongThanh, F1Required: 7, F1RankRequired: &rankMK, Bonus: 0.5},
			{Rank: models.RankCaySaiQua, F1Required: 7, F1RankRequired: &rankCN, Bonus: 0.7},
			{Rank: models.RankCoThu, F1Required: 7, F1RankRequired: &rankCTT, Bonus: 1.0},
		},
		FraudThresholdScore:      utils.DefaultFraudThreshold,
		MinPayoutAmount:          utils.DefaultMinPayoutAmount,
		EnableReferrerOrderCheck: true,
		RequireAdminApproval:     true,
		BlockSelfReferral:        true,
	}
}
