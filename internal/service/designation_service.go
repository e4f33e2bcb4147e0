package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"moving-team/backend/internal/dto"
	"moving-team/backend/internal/model"
	"moving-team/backend/internal/notify"
	"moving-team/backend/internal/repository"
	"moving-team/backend/pkg/database"
	pkgerrors "moving-team/backend/pkg/errors"
)

// ── 指定司机业务错误 ──

var (
	ErrDriverNotFound        = pkgerrors.New(pkgerrors.NotFound, "司机不存在")
	ErrDesignationClosed     = pkgerrors.New(pkgerrors.InvalidState, "报价已确定，不能再指定司机")
	ErrAlreadyDesignated     = pkgerrors.New(pkgerrors.Conflict, "该司机已被指定")
	ErrDesignationLimit      = pkgerrors.New(pkgerrors.Conflict, "指定司机数已达上限")
	ErrDesignationBelowUsage = pkgerrors.New(pkgerrors.Conflict, "已收到的回应多于指定后的名额，不能再指定")
)

// DesignationService 指定司机接口
type DesignationService interface {
	// Designate 为客户进行中的申请指定司机
	Designate(ctx context.Context, customerID string, req *dto.DesignateDriverRequest) (*dto.DesignationResponse, error)
}

type designationService struct {
	repo     *repository.Repository
	policy   QuotaPolicy
	notifier notify.Notifier
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewDesignationService 创建 DesignationService 实例
func NewDesignationService(
	repo *repository.Repository,
	policy QuotaPolicy,
	notifier notify.Notifier,
	loc *time.Location,
	logger *zap.Logger,
) DesignationService {
	return &designationService{
		repo:     repo,
		policy:   policy,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *designationService) Designate(ctx context.Context, customerID string, req *dto.DesignateDriverRequest) (*dto.DesignationResponse, error) {
	if _, err := s.repo.Driver.GetByID(ctx, req.DriverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDriverNotFound
		}
		s.logger.Error("查询司机失败", zap.String("driver_id", req.DriverID), zap.Error(err))
		return nil, err
	}

	var (
		requestID string
		count     int
	)
	// 计数与写入在申请行锁内完成，与回应写入互斥
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		active, err := tx.EstimateRequest.LockActiveByCustomer(ctx, customerID, startOfDay(s.now(), s.loc))
		if err != nil {
			return notFoundOr(err, ErrNoActiveRequest)
		}
		if active.Status != model.RequestStatusPending {
			return ErrDesignationClosed
		}
		requestID = active.EstimateRequestID

		designated, err := tx.DesignatedDriver.ListDriverIDsByRequest(ctx, requestID)
		if err != nil {
			return err
		}
		for _, id := range designated {
			if id == req.DriverID {
				return ErrAlreadyDesignated
			}
		}
		if len(designated) >= s.policy.MaxDesignated {
			return ErrDesignationLimit
		}

		// 指定后上限变为指定司机数，新被指定的司机必须仍有名额：
		// 已有回应数须小于指定后的上限，首次指定因此要求公开期间尚无回应
		estimates, err := tx.Estimate.CountByRequest(ctx, requestID)
		if err != nil {
			return err
		}
		rejections, err := tx.Rejection.CountByRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if int(estimates+rejections) >= s.policy.Limit(len(designated)+1) {
			return ErrDesignationBelowUsage
		}

		if err := tx.DesignatedDriver.Create(ctx, &model.DesignatedDriver{
			EstimateRequestID: requestID,
			DriverID:          req.DriverID,
		}); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrAlreadyDesignated
			}
			return err
		}
		count = len(designated) + 1
		return nil
	})
	if err != nil {
		if pkgerrors.KindOf(err) == pkgerrors.Internal {
			s.logger.Error("指定司机失败",
				zap.String("customer_id", customerID),
				zap.String("driver_id", req.DriverID),
				zap.Error(err))
		}
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Event{
		Kind:       notify.KindDriverDesignated,
		Recipients: []string{req.DriverID},
		RequestID:  requestID,
	})

	return &dto.DesignationResponse{
		EstimateRequestID: requestID,
		DriverID:          req.DriverID,
		DesignatedCount:   count,
	}, nil
}
