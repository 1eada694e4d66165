package repository

import (
	"context"
	"snaptrade/internal/model"
	"time"

	"gorm.io/gorm"
)

type AssetCleanupRepository interface {
	Record(ctx context.Context, cleanup *model.AssetCleanup) error
	ListUnresolved(ctx context.Context, provider string, maxAttempts, limit int) ([]*model.AssetCleanup, error)
	MarkResolved(ctx context.Context, id uint) error
	MarkFailed(ctx context.Context, id uint, lastError string) error
}

type assetCleanupRepoImpl struct {
	db *gorm.DB
}

func NewAssetCleanupRepository(db *gorm.DB) AssetCleanupRepository {
	return &assetCleanupRepoImpl{
		db: db,
	}
}

func (r *assetCleanupRepoImpl) Record(ctx context.Context, cleanup *model.AssetCleanup) error {
	return r.db.WithContext(ctx).Create(cleanup).Error
}

func (r *assetCleanupRepoImpl) ListUnresolved(ctx context.Context, provider string, maxAttempts, limit int) ([]*model.AssetCleanup, error) {
	var cleanups []*model.AssetCleanup
	err := r.db.WithContext(ctx).
		Where("provider = ?", provider).
		Where("resolved_at IS NULL AND attempts < ?", maxAttempts).
		Order("id ASC").
		Limit(limit).
		Find(&cleanups).Error
	if err != nil {
		return nil, err
	}

	return cleanups, nil
}

func (r *assetCleanupRepoImpl) MarkResolved(ctx context.Context, id uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.AssetCleanup{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":    gorm.Expr("attempts + 1"),
			"resolved_at": &now,
			"updated_at":  now,
		}).Error
}

func (r *assetCleanupRepoImpl) MarkFailed(ctx context.Context, id uint, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&model.AssetCleanup{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
			"updated_at": time.Now(),
		}).Error
}
