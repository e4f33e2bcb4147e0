package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moving-team/backend/internal/model"
)

// CustomerRepository 客户数据访问接口
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*model.Customer, error)
	// LockByID SELECT ... FOR UPDATE，仅在事务内有意义
	LockByID(ctx context.Context, id string) (*model.Customer, error)
}

type customerRepo struct {
	db *gorm.DB
}

// NewCustomerRepo 创建 CustomerRepository 实例
func NewCustomerRepo(db *gorm.DB) CustomerRepository {
	return &customerRepo{db: db}
}

func (r *customerRepo) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *customerRepo) LockByID(ctx context.Context, id string) (*model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}
