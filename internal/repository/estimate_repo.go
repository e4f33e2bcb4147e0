package repository

import (
	"context"

	"gorm.io/gorm"

	"moving-team/backend/internal/model"
)

// EstimateRepository 司机报价数据访问接口
type EstimateRepository interface {
	Create(ctx context.Context, e *model.Estimate) error
	GetByID(ctx context.Context, id string) (*model.Estimate, error)
	CountByRequest(ctx context.Context, requestID string) (int64, error)
	ExistsByDriverAndRequest(ctx context.Context, driverID, requestID string) (bool, error)
	ListByRequest(ctx context.Context, requestID string) ([]model.Estimate, error)
	ListByDriver(ctx context.Context, driverID string, offset, limit int) ([]model.Estimate, int64, error)
	// UpdateStatus 条件更新：仅当当前状态为 from 时改为 to，返回是否命中
	UpdateStatus(ctx context.Context, id string, from, to model.EstimateStatus) (bool, error)
	// AutoRejectSiblings 将同一申请下除 acceptedID 外的 PROPOSED 报价置为 AUTO_REJECTED
	AutoRejectSiblings(ctx context.Context, requestID, acceptedID string) (int64, error)
}

type estimateRepo struct {
	db *gorm.DB
}

// NewEstimateRepo 创建 EstimateRepository 实例
func NewEstimateRepo(db *gorm.DB) EstimateRepository {
	return &estimateRepo{db: db}
}

func (r *estimateRepo) Create(ctx context.Context, e *model.Estimate) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *estimateRepo) GetByID(ctx context.Context, id string) (*model.Estimate, error) {
	var e model.Estimate
	err := r.db.WithContext(ctx).
		Where("estimate_id = ?", id).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *estimateRepo) CountByRequest(ctx context.Context, requestID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Estimate{}).
		Where("estimate_request_id = ?", requestID).
		Count(&n).Error
	return n, err
}

func (r *estimateRepo) ExistsByDriverAndRequest(ctx context.Context, driverID, requestID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Estimate{}).
		Where("driver_id = ? AND estimate_request_id = ?", driverID, requestID).
		Count(&n).Error
	return n > 0, err
}

func (r *estimateRepo) ListByRequest(ctx context.Context, requestID string) ([]model.Estimate, error) {
	var list []model.Estimate
	err := r.db.WithContext(ctx).
		Preload("Driver").
		Where("estimate_request_id = ?", requestID).
		Order("price ASC, created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *estimateRepo) ListByDriver(ctx context.Context, driverID string, offset, limit int) ([]model.Estimate, int64, error) {
	var list []model.Estimate
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Estimate{}).
		Where("driver_id = ?", driverID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&list).Error
	return list, total, err
}

func (r *estimateRepo) UpdateStatus(ctx context.Context, id string, from, to model.EstimateStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Estimate{}).
		Where("estimate_id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *estimateRepo) AutoRejectSiblings(ctx context.Context, requestID, acceptedID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Estimate{}).
		Where("estimate_request_id = ? AND estimate_id <> ? AND status = ?",
			requestID, acceptedID, model.EstimateStatusProposed).
		Update("status", model.EstimateStatusAutoRejected)
	return result.RowsAffected, result.Error
}
