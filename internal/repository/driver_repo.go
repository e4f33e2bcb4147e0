package repository

import (
	"context"

	"gorm.io/gorm"

	"moving-team/backend/internal/model"
)

// DriverRepository 司机数据访问接口
type DriverRepository interface {
	GetByID(ctx context.Context, id string) (*model.Driver, error)
	// ListIDsByRegions 服务区域与任一 region 重叠的司机 ID
	ListIDsByRegions(ctx context.Context, regions []string) ([]string, error)
}

type driverRepo struct {
	db *gorm.DB
}

// NewDriverRepo 创建 DriverRepository 实例
func NewDriverRepo(db *gorm.DB) DriverRepository {
	return &driverRepo{db: db}
}

func (r *driverRepo) GetByID(ctx context.Context, id string) (*model.Driver, error) {
	var d model.Driver
	err := r.db.WithContext(ctx).
		Where("driver_id = ?", id).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *driverRepo) ListIDsByRegions(ctx context.Context, regions []string) ([]string, error) {
	if len(regions) == 0 {
		return nil, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Driver{}).
		Where("service_regions && ?::varchar[]", model.StringArray(regions)).
		Pluck("driver_id", &ids).Error
	return ids, err
}
