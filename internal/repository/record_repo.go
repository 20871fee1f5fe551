package repository

import (
	"context"

	"github.com/tradepulse/push-pipeline/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeliveryRecordRepository interface {
	// CreateIgnoreDuplicate inserts a delivery row unless the
	// (recipient, intent) pair already exists. Reports whether a row was
	// actually inserted, which gates the unread counter increment.
	CreateIgnoreDuplicate(ctx context.Context, record *domain.DeliveryRecord) (bool, error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, recipientID string, recordIDs []string) (int64, error)
}

type GormDeliveryRecordRepo struct {
	db *gorm.DB
}

func NewGormDeliveryRecordRepo(db *gorm.DB) *GormDeliveryRecordRepo {
	return &GormDeliveryRecordRepo{db: db}
}

func (r *GormDeliveryRecordRepo) CreateIgnoreDuplicate(ctx context.Context, record *domain.DeliveryRecord) (bool, error) {
	model, err := recordModelFromDomain(record)
	if err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recipient_id"}, {Name: "intent_id"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormDeliveryRecordRepo) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&DeliveryRecordModel{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormDeliveryRecordRepo) MarkRead(ctx context.Context, recipientID string, recordIDs []string) (int64, error) {
	if len(recordIDs) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&DeliveryRecordModel{}).
		Where("recipient_id = ? AND id IN ? AND read = ?", recipientID, recordIDs, false).
		Update("read", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
