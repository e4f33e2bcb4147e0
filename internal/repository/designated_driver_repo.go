package repository

import (
	"context"

	"gorm.io/gorm"

	"moving-team/backend/internal/model"
)

// DesignatedDriverRepository 指定司机数据访问接口
type DesignatedDriverRepository interface {
	Create(ctx context.Context, d *model.DesignatedDriver) error
	CountByRequest(ctx context.Context, requestID string) (int64, error)
	ListDriverIDsByRequest(ctx context.Context, requestID string) ([]string, error)
}

type designatedDriverRepo struct {
	db *gorm.DB
}

// NewDesignatedDriverRepo 创建 DesignatedDriverRepository 实例
func NewDesignatedDriverRepo(db *gorm.DB) DesignatedDriverRepository {
	return &designatedDriverRepo{db: db}
}

func (r *designatedDriverRepo) Create(ctx context.Context, d *model.DesignatedDriver) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *designatedDriverRepo) CountByRequest(ctx context.Context, requestID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.DesignatedDriver{}).
		Where("estimate_request_id = ?", requestID).
		Count(&n).Error
	return n, err
}

func (r *designatedDriverRepo) ListDriverIDsByRequest(ctx context.Context, requestID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.DesignatedDriver{}).
		Where("estimate_request_id = ?", requestID).
		Order("created_at ASC").
		Pluck("driver_id", &ids).Error
	return ids, err
}
