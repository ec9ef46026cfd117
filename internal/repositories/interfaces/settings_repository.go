package interfaces

import (
	"context"

	"seedmart/internal/models"
)

// SettingsRepository stores the singleton program configuration.
type SettingsRepository interface {
	Get(ctx context.Context) (*models.ReferralSetting, error)
	Upsert(ctx context.Context, setting *models.ReferralSetting) error
}
