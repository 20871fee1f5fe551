package repository

import (
	"context"

	"github.com/tradepulse/push-pipeline/internal/domain"
	"gorm.io/gorm"
)

type EndpointRepository interface {
	ActiveByRecipients(ctx context.Context, recipientIDs []string) ([]domain.DeliveryEndpoint, error)
	AllActiveRecipientIDs(ctx context.Context) ([]string, error)
	DeactivateByTokens(ctx context.Context, tokens []string) (int64, error)
}

type GormEndpointRepo struct {
	db *gorm.DB
}

func NewGormEndpointRepo(db *gorm.DB) *GormEndpointRepo {
	return &GormEndpointRepo{db: db}
}

func (r *GormEndpointRepo) ActiveByRecipients(ctx context.Context, recipientIDs []string) ([]domain.DeliveryEndpoint, error) {
	if len(recipientIDs) == 0 {
		return nil, nil
	}

	var models []EndpointModel
	err := r.db.WithContext(ctx).
		Where("recipient_id IN ? AND active = ?", recipientIDs, true).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	endpoints := make([]domain.DeliveryEndpoint, 0, len(models))
	for i := range models {
		endpoints = append(endpoints, *endpointModelToDomain(&models[i]))
	}
	return endpoints, nil
}

func (r *GormEndpointRepo) AllActiveRecipientIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&EndpointModel{}).
		Where("active = ?", true).
		Distinct().
		Pluck("recipient_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GormEndpointRepo) DeactivateByTokens(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&EndpointModel{}).
		Where("token IN ? AND active = ?", tokens, true).
		Update("active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
