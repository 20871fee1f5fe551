package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tradepulse/push-pipeline/internal/domain"
	"gorm.io/gorm"
)

type IntentListParams struct {
	Status   *domain.IntentStatus
	Category *domain.Category
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

type IntentRepository interface {
	Create(ctx context.Context, intent *domain.Intent) error
	GetByID(ctx context.Context, id string) (*domain.Intent, error)
	List(ctx context.Context, params IntentListParams) ([]domain.Intent, int64, error)
	// ClaimDue fetches up to limit due pending intents, oldest scheduled
	// first, and transitions each to PROCESSING with a conditional update.
	// Rows another invocation claimed concurrently are skipped.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Intent, error)
	Complete(ctx context.Context, id string, processed int, failed int) error
	Fail(ctx context.Context, id string, errorMessage string) error
	// Requeue moves a FAILED intent back to PENDING for another drain pass.
	Requeue(ctx context.Context, id string, scheduledFor time.Time) error
}

type GormIntentRepo struct {
	db *gorm.DB
}

func NewGormIntentRepo(db *gorm.DB) *GormIntentRepo {
	return &GormIntentRepo{db: db}
}

func (r *GormIntentRepo) Create(ctx context.Context, intent *domain.Intent) error {
	model, err := intentModelFromDomain(intent)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if intent != nil {
		restored, err := intentModelToDomain(model)
		if err != nil {
			return err
		}
		*intent = *restored
	}
	return nil
}

func (r *GormIntentRepo) GetByID(ctx context.Context, id string) (*domain.Intent, error) {
	var model IntentModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return intentModelToDomain(&model)
}

func (r *GormIntentRepo) List(ctx context.Context, params IntentListParams) ([]domain.Intent, int64, error) {
	query := r.db.WithContext(ctx).Model(&IntentModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Category != nil {
		query = query.Where("category = ?", *params.Category)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []IntentModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	intents := make([]domain.Intent, 0, len(models))
	for i := range models {
		intent, err := intentModelToDomain(&models[i])
		if err != nil {
			return nil, 0, err
		}
		intents = append(intents, *intent)
	}

	return intents, total, nil
}

func (r *GormIntentRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Intent, error) {
	if limit < 1 {
		limit = 1
	}

	var models []IntentModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", domain.IntentPending, now).
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	claimed := make([]domain.Intent, 0, len(models))
	for i := range models {
		// The conditional update is the claim: at most one concurrent
		// invocation flips a given row out of PENDING.
		result := r.db.WithContext(ctx).
			Model(&IntentModel{}).
			Where("id = ? AND status = ?", models[i].ID, domain.IntentPending).
			Update("status", domain.IntentProcessing)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}

		models[i].Status = domain.IntentProcessing
		intent, err := intentModelToDomain(&models[i])
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, *intent)
	}

	return claimed, nil
}

func (r *GormIntentRepo) Complete(ctx context.Context, id string, processed int, failed int) error {
	result := r.db.WithContext(ctx).
		Model(&IntentModel{}).
		Where("id = ? AND status = ?", id, domain.IntentProcessing).
		Updates(map[string]any{
			"status":          domain.IntentCompleted,
			"processed_count": processed,
			"failed_count":    failed,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormIntentRepo) Fail(ctx context.Context, id string, errorMessage string) error {
	result := r.db.WithContext(ctx).
		Model(&IntentModel{}).
		Where("id = ? AND status = ?", id, domain.IntentProcessing).
		Updates(map[string]any{
			"status":        domain.IntentFailed,
			"error_message": errorMessage,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormIntentRepo) Requeue(ctx context.Context, id string, scheduledFor time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&IntentModel{}).
		Where("id = ? AND status = ?", id, domain.IntentFailed).
		Updates(map[string]any{
			"status":          domain.IntentPending,
			"scheduled_for":   scheduledFor,
			"error_message":   nil,
			"processed_count": 0,
			"failed_count":    0,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}
