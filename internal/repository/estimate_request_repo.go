package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moving-team/backend/internal/model"
)

// EstimateRequestRepository 报价申请数据访问接口
type EstimateRequestRepository interface {
	Create(ctx context.Context, req *model.EstimateRequest) error
	GetByID(ctx context.Context, id string) (*model.EstimateRequest, error)
	// LockByID SELECT ... FOR UPDATE：同一申请的名额、指定、接受操作以此串行化
	LockByID(ctx context.Context, id string) (*model.EstimateRequest, error)
	// GetActiveByCustomer 单条查询：PENDING，或 APPROVED 且 move_date >= today
	GetActiveByCustomer(ctx context.Context, customerID string, today time.Time) (*model.EstimateRequest, error)
	// LockActiveByCustomer 同 GetActiveByCustomer，并锁定命中的行
	LockActiveByCustomer(ctx context.Context, customerID string, today time.Time) (*model.EstimateRequest, error)
	// UpdateStatus 条件更新：仅当当前状态为 from 时改为 to，返回是否命中
	UpdateStatus(ctx context.Context, id string, from, to model.RequestStatus) (bool, error)
	SoftDelete(ctx context.Context, id string) error
	// LockOverdueApproved 锁定一批搬家日早于 before 的 APPROVED 申请，跳过已被其他事务锁定的行
	LockOverdueApproved(ctx context.Context, before time.Time, limit int) ([]model.EstimateRequest, error)
	// CompleteByIDs 将 ids 中仍为 APPROVED 的申请置为 COMPLETED
	CompleteByIDs(ctx context.Context, ids []string) (int64, error)
}

type estimateRequestRepo struct {
	db *gorm.DB
}

// NewEstimateRequestRepo 创建 EstimateRequestRepository 实例
func NewEstimateRequestRepo(db *gorm.DB) EstimateRequestRepository {
	return &estimateRequestRepo{db: db}
}

func (r *estimateRequestRepo) Create(ctx context.Context, req *model.EstimateRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *estimateRequestRepo) GetByID(ctx context.Context, id string) (*model.EstimateRequest, error) {
	var req model.EstimateRequest
	err := r.db.WithContext(ctx).
		Preload("FromAddress").
		Preload("ToAddress").
		Where("estimate_request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *estimateRequestRepo) LockByID(ctx context.Context, id string) (*model.EstimateRequest, error) {
	var req model.EstimateRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("estimate_request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *estimateRequestRepo) activeQuery(ctx context.Context, customerID string, today time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Where("(status = ? OR (status = ? AND move_date >= ?))",
			model.RequestStatusPending, model.RequestStatusApproved, today).
		Order("created_at DESC")
}

func (r *estimateRequestRepo) GetActiveByCustomer(ctx context.Context, customerID string, today time.Time) (*model.EstimateRequest, error) {
	var req model.EstimateRequest
	err := r.activeQuery(ctx, customerID, today).
		Preload("FromAddress").
		Preload("ToAddress").
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *estimateRequestRepo) LockActiveByCustomer(ctx context.Context, customerID string, today time.Time) (*model.EstimateRequest, error) {
	var req model.EstimateRequest
	err := r.activeQuery(ctx, customerID, today).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *estimateRequestRepo) UpdateStatus(ctx context.Context, id string, from, to model.RequestStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.EstimateRequest{}).
		Where("estimate_request_id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *estimateRequestRepo) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("estimate_request_id = ?", id).
		Delete(&model.EstimateRequest{}).Error
}

func (r *estimateRequestRepo) LockOverdueApproved(ctx context.Context, before time.Time, limit int) ([]model.EstimateRequest, error) {
	var reqs []model.EstimateRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Select("estimate_request_id", "customer_id", "move_date", "status").
		Where("status = ? AND move_date < ?", model.RequestStatusApproved, before).
		Order("move_date ASC").
		Limit(limit).
		Find(&reqs).Error
	return reqs, err
}

func (r *estimateRequestRepo) CompleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&model.EstimateRequest{}).
		Where("estimate_request_id IN ? AND status = ?", ids, model.RequestStatusApproved).
		Update("status", model.RequestStatusCompleted)
	return result.RowsAffected, result.Error
}
