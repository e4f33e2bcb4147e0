package repository

import (
	"context"

	"gorm.io/gorm"

	"moving-team/backend/internal/model"
)

// RejectionRepository 司机拒绝报价数据访问接口（只增不改）
type RejectionRepository interface {
	Create(ctx context.Context, r *model.DriverEstimateRejection) error
	CountByRequest(ctx context.Context, requestID string) (int64, error)
	CountByRequestAndDrivers(ctx context.Context, requestID string, driverIDs []string) (int64, error)
	ExistsByDriverAndRequest(ctx context.Context, driverID, requestID string) (bool, error)
}

type rejectionRepo struct {
	db *gorm.DB
}

// NewRejectionRepo 创建 RejectionRepository 实例
func NewRejectionRepo(db *gorm.DB) RejectionRepository {
	return &rejectionRepo{db: db}
}

func (r *rejectionRepo) Create(ctx context.Context, rej *model.DriverEstimateRejection) error {
	return r.db.WithContext(ctx).Create(rej).Error
}

func (r *rejectionRepo) CountByRequest(ctx context.Context, requestID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.DriverEstimateRejection{}).
		Where("estimate_request_id = ?", requestID).
		Count(&n).Error
	return n, err
}

// CountByRequestAndDrivers 仅统计指定司机集合内的拒绝
func (r *rejectionRepo) CountByRequestAndDrivers(ctx context.Context, requestID string, driverIDs []string) (int64, error) {
	if len(driverIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.DriverEstimateRejection{}).
		Where("estimate_request_id = ? AND driver_id IN ?", requestID, driverIDs).
		Count(&n).Error
	return n, err
}

func (r *rejectionRepo) ExistsByDriverAndRequest(ctx context.Context, driverID, requestID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.DriverEstimateRejection{}).
		Where("driver_id = ? AND estimate_request_id = ?", driverID, requestID).
		Count(&n).Error
	return n > 0, err
}
