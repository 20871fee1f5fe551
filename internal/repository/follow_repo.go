package repository

import (
	"context"

	"gorm.io/gorm"
)

type FollowRepository interface {
	// TradeNotifiedFollowerIDs returns recipients following the KOL wallet
	// with the per-follow trade notification opt-in set.
	TradeNotifiedFollowerIDs(ctx context.Context, kolWallet string) ([]string, error)
}

type GormFollowRepo struct {
	db *gorm.DB
}

func NewGormFollowRepo(db *gorm.DB) *GormFollowRepo {
	return &GormFollowRepo{db: db}
}

func (r *GormFollowRepo) TradeNotifiedFollowerIDs(ctx context.Context, kolWallet string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&FollowModel{}).
		Where("kol_wallet = ? AND notify_trades = ?", kolWallet, true).
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
