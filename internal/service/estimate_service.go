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

// ── 司机报价业务错误 ──

var (
	ErrInvalidPrice        = pkgerrors.New(pkgerrors.InvalidArgument, "报价金额必须大于 0")
	ErrDuplicateEstimate   = pkgerrors.New(pkgerrors.Conflict, "已对该申请提交过报价")
	ErrDuplicateRejection  = pkgerrors.New(pkgerrors.Conflict, "已拒绝过该申请")
	ErrEstimateNotFound    = pkgerrors.New(pkgerrors.NotFound, "报价不存在")
	ErrEstimateNotProposed = pkgerrors.New(pkgerrors.InvalidState, "报价当前状态不可操作")
)

// EstimateService 司机回应与报价查询接口
type EstimateService interface {
	// CanRespond 参考性名额查询，不加锁；写入时会在事务内复核
	CanRespond(ctx context.Context, driverID, requestID string) (*dto.QuotaResponse, error)
	Submit(ctx context.Context, driverID, requestID string, req *dto.SubmitEstimateRequest) (*dto.EstimateResponse, error)
	// Reject 司机谢绝报价；指定司机全部谢绝时申请转为 REJECTED
	Reject(ctx context.Context, driverID, requestID string, req *dto.RejectRequestRequest) (*dto.RejectionResponse, error)
	// Withdraw 司机撤回自己的 PROPOSED 报价，不释放名额
	Withdraw(ctx context.Context, driverID, estimateID string) (*dto.EstimateResponse, error)
	ListReceived(ctx context.Context, customerID string) ([]dto.EstimateResponse, error)
	ListMine(ctx context.Context, driverID string, page *dto.PaginationRequest) ([]dto.EstimateResponse, int64, error)
}

type estimateService struct {
	repo     *repository.Repository
	policy   QuotaPolicy
	notifier notify.Notifier
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewEstimateService 创建 EstimateService 实例
func NewEstimateService(
	repo *repository.Repository,
	policy QuotaPolicy,
	notifier notify.Notifier,
	loc *time.Location,
	logger *zap.Logger,
) EstimateService {
	return &estimateService{
		repo:     repo,
		policy:   policy,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

// ────────────────────── CanRespond ──────────────────────

func (s *estimateService) CanRespond(ctx context.Context, driverID, requestID string) (*dto.QuotaResponse, error) {
	req, err := s.repo.EstimateRequest.GetByID(ctx, requestID)
	if err != nil {
		return nil, s.wrapLookup(err, ErrRequestNotFound, "查询报价申请失败")
	}
	snap, err := loadSnapshot(ctx, s.repo, req, driverID)
	if err != nil {
		s.logger.Error("读取回应名额失败", zap.String("estimate_request_id", requestID), zap.Error(err))
		return nil, err
	}
	d := s.policy.Decide(snap, driverID)
	return &dto.QuotaResponse{Allowed: d.Allowed, Limit: d.Limit, Used: d.Used, Reason: d.Reason}, nil
}

// ────────────────────── Submit ──────────────────────

func (s *estimateService) Submit(ctx context.Context, driverID, requestID string, req *dto.SubmitEstimateRequest) (*dto.EstimateResponse, error) {
	// 金额校验先于任何名额读取
	if req.Price <= 0 {
		return nil, ErrInvalidPrice
	}

	var (
		est        *model.Estimate
		customerID string
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		r, err := tx.EstimateRequest.LockByID(ctx, requestID)
		if err != nil {
			return notFoundOr(err, ErrRequestNotFound)
		}
		customerID = r.CustomerID

		snap, err := loadSnapshot(ctx, tx, r, driverID)
		if err != nil {
			return err
		}
		if d := s.policy.Decide(snap, driverID); !d.Allowed {
			// 申请已结束时优先报告状态错误
			if d.Reason == QuotaReasonAlreadyResponded && snap.hasEstimate {
				return ErrDuplicateEstimate
			}
			return decisionError(d)
		}

		est = &model.Estimate{
			EstimateRequestID: requestID,
			DriverID:          driverID,
			Price:             req.Price,
			Comment:           req.Comment,
			Status:            model.EstimateStatusProposed,
			IsDesignated:      snap.isDesignatedMode(),
		}
		if err := tx.Estimate.Create(ctx, est); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDuplicateEstimate
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.logFailure("提交报价失败", driverID, requestID, err)
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Event{
		Kind:       notify.KindEstimateProposed,
		Recipients: []string{customerID},
		RequestID:  requestID,
		EstimateID: est.EstimateID,
	})
	return toEstimateResponse(est), nil
}

// ────────────────────── Reject ──────────────────────

func (s *estimateService) Reject(ctx context.Context, driverID, requestID string, req *dto.RejectRequestRequest) (*dto.RejectionResponse, error) {
	var (
		status     = model.RequestStatusPending
		customerID string
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		r, err := tx.EstimateRequest.LockByID(ctx, requestID)
		if err != nil {
			return notFoundOr(err, ErrRequestNotFound)
		}
		customerID = r.CustomerID

		snap, err := loadSnapshot(ctx, tx, r, driverID)
		if err != nil {
			return err
		}
		if d := s.policy.Decide(snap, driverID); !d.Allowed {
			if d.Reason == QuotaReasonAlreadyResponded && snap.hasRejection {
				return ErrDuplicateRejection
			}
			return decisionError(d)
		}

		if err := tx.Rejection.Create(ctx, &model.DriverEstimateRejection{
			DriverID:          driverID,
			EstimateRequestID: requestID,
			Reason:            req.Reason,
		}); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDuplicateRejection
			}
			return err
		}

		// 公开申请不会因拒绝而自动结束；只有指定司机本人的拒绝计入
		if snap.isDesignatedMode() && int(snap.designatedRejections)+1 == len(snap.designated) {
			ok, err := tx.EstimateRequest.UpdateStatus(ctx, requestID, model.RequestStatusPending, model.RequestStatusRejected)
			if err != nil {
				return err
			}
			if ok {
				status = model.RequestStatusRejected
			}
		}
		return nil
	})
	if err != nil {
		s.logFailure("拒绝报价申请失败", driverID, requestID, err)
		return nil, err
	}

	if status == model.RequestStatusRejected {
		s.notifier.Notify(ctx, notify.Event{
			Kind:       notify.KindRequestRejected,
			Recipients: []string{customerID},
			RequestID:  requestID,
		})
	}
	return &dto.RejectionResponse{EstimateRequestID: requestID, RequestStatus: string(status)}, nil
}

// ────────────────────── Withdraw ──────────────────────

func (s *estimateService) Withdraw(ctx context.Context, driverID, estimateID string) (*dto.EstimateResponse, error) {
	est, err := s.repo.Estimate.GetByID(ctx, estimateID)
	if err != nil {
		return nil, s.wrapLookup(err, ErrEstimateNotFound, "查询报价失败")
	}
	if est.DriverID != driverID {
		return nil, ErrEstimateNotFound
	}
	// 申请已取消时其报价不可再访问
	if _, err := s.repo.EstimateRequest.GetByID(ctx, est.EstimateRequestID); err != nil {
		return nil, s.wrapLookup(err, ErrEstimateNotFound, "查询报价申请失败")
	}

	ok, err := s.repo.Estimate.UpdateStatus(ctx, estimateID, model.EstimateStatusProposed, model.EstimateStatusRejected)
	if err != nil {
		s.logger.Error("撤回报价失败", zap.String("estimate_id", estimateID), zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, ErrEstimateNotProposed
	}
	est.Status = model.EstimateStatusRejected
	return toEstimateResponse(est), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *estimateService) ListReceived(ctx context.Context, customerID string) ([]dto.EstimateResponse, error) {
	active, err := s.repo.EstimateRequest.GetActiveByCustomer(ctx, customerID, startOfDay(s.now(), s.loc))
	if err != nil {
		return nil, s.wrapLookup(err, ErrNoActiveRequest, "查询进行中的申请失败")
	}
	list, err := s.repo.Estimate.ListByRequest(ctx, active.EstimateRequestID)
	if err != nil {
		s.logger.Error("查询收到的报价失败", zap.String("estimate_request_id", active.EstimateRequestID), zap.Error(err))
		return nil, err
	}
	return toEstimateResponses(list), nil
}

func (s *estimateService) ListMine(ctx context.Context, driverID string, page *dto.PaginationRequest) ([]dto.EstimateResponse, int64, error) {
	list, total, err := s.repo.Estimate.ListByDriver(ctx, driverID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询司机报价失败", zap.String("driver_id", driverID), zap.Error(err))
		return nil, 0, err
	}
	return toEstimateResponses(list), total, nil
}

// ── 辅助函数 ──

func (s *estimateService) wrapLookup(err, notFound error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	s.logger.Error(msg, zap.Error(err))
	return err
}

func (s *estimateService) logFailure(msg, driverID, requestID string, err error) {
	if pkgerrors.KindOf(err) != pkgerrors.Internal {
		return
	}
	s.logger.Error(msg,
		zap.String("driver_id", driverID),
		zap.String("estimate_request_id", requestID),
		zap.Error(err))
}

func toEstimateResponse(e *model.Estimate) *dto.EstimateResponse {
	resp := &dto.EstimateResponse{
		ID:                e.EstimateID,
		EstimateRequestID: e.EstimateRequestID,
		DriverID:          e.DriverID,
		Price:             e.Price,
		Comment:           e.Comment,
		Status:            string(e.Status),
		IsDesignated:      e.IsDesignated,
		CreatedAt:         e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if e.Driver != nil {
		resp.DriverNickname = e.Driver.Nickname
	}
	return resp
}

func toEstimateResponses(list []model.Estimate) []dto.EstimateResponse {
	result := make([]dto.EstimateResponse, 0, len(list))
	for i := range list {
		result = append(result, *toEstimateResponse(&list[i]))
	}
	return result
}
