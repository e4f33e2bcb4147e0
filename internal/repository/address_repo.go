package repository

import (
	"context"

	"gorm.io/gorm"

	"moving-team/backend/internal/model"
)

// AddressRepository 地址数据访问接口
type AddressRepository interface {
	GetByID(ctx context.Context, id string) (*model.Address, error)
}

type addressRepo struct {
	db *gorm.DB
}

// NewAddressRepo 创建 AddressRepository 实例
func NewAddressRepo(db *gorm.DB) AddressRepository {
	return &addressRepo{db: db}
}

func (r *addressRepo) GetByID(ctx context.Context, id string) (*model.Address, error) {
	var a model.Address
	err := r.db.WithContext(ctx).
		Where("address_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}
