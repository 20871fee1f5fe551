package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tradepulse/push-pipeline/internal/domain"
	"gorm.io/gorm"
)

type PreferenceRepository interface {
	// ByRecipients returns preference records keyed by recipient id.
	// Recipients without a row are simply absent from the map.
	ByRecipients(ctx context.Context, recipientIDs []string) (map[string]domain.Preference, error)
	// WhaleSubscriberIDs returns recipients with whale alerts on whose
	// configured threshold is at or below the given trade value.
	WhaleSubscriberIDs(ctx context.Context, usdValue decimal.Decimal) ([]string, error)
}

type GormPreferenceRepo struct {
	db *gorm.DB
}

func NewGormPreferenceRepo(db *gorm.DB) *GormPreferenceRepo {
	return &GormPreferenceRepo{db: db}
}

func (r *GormPreferenceRepo) ByRecipients(ctx context.Context, recipientIDs []string) (map[string]domain.Preference, error) {
	if len(recipientIDs) == 0 {
		return map[string]domain.Preference{}, nil
	}

	var models []PreferenceModel
	err := r.db.WithContext(ctx).
		Where("recipient_id IN ?", recipientIDs).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	preferences := make(map[string]domain.Preference, len(models))
	for i := range models {
		preferences[models[i].RecipientID] = *preferenceModelToDomain(&models[i])
	}
	return preferences, nil
}

func (r *GormPreferenceRepo) WhaleSubscriberIDs(ctx context.Context, usdValue decimal.Decimal) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&PreferenceModel{}).
		Where("notifications_enabled = ? AND whale_alerts_enabled = ? AND whale_threshold_usd <= ?",
			true, true, usdValue).
		Pluck("recipient_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
