package service

import (
	"context"

	"go.uber.org/zap"

	"moving-team/backend/internal/dto"
	"moving-team/backend/internal/model"
	"moving-team/backend/internal/notify"
	"moving-team/backend/internal/repository"
	pkgerrors "moving-team/backend/pkg/errors"
)

// AcceptanceService 接受报价接口
type AcceptanceService interface {
	// Accept 在同一事务内：目标报价 ACCEPTED、其余 PROPOSED 报价 AUTO_REJECTED、申请 APPROVED
	Accept(ctx context.Context, customerID, estimateID string) (*dto.AcceptEstimateResponse, error)
}

type acceptanceService struct {
	repo     *repository.Repository
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewAcceptanceService 创建 AcceptanceService 实例
func NewAcceptanceService(repo *repository.Repository, notifier notify.Notifier, logger *zap.Logger) AcceptanceService {
	return &acceptanceService{repo: repo, notifier: notifier, logger: logger}
}

func (s *acceptanceService) Accept(ctx context.Context, customerID, estimateID string) (*dto.AcceptEstimateResponse, error) {
	var (
		est         *model.Estimate
		idempotent  bool
		autoDrivers []string
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		est, err = tx.Estimate.GetByID(ctx, estimateID)
		if err != nil {
			return notFoundOr(err, ErrEstimateNotFound)
		}
		// 锁申请行，与回应写入、指定司机、其他接受操作互斥
		req, err := tx.EstimateRequest.LockByID(ctx, est.EstimateRequestID)
		if err != nil {
			return notFoundOr(err, ErrEstimateNotFound)
		}
		if req.CustomerID != customerID {
			return ErrEstimateNotFound
		}

		if est.Status == model.EstimateStatusAccepted && req.Status == model.RequestStatusApproved {
			idempotent = true
			return nil
		}
		if req.Status != model.RequestStatusPending {
			return ErrRequestNotPending
		}
		if est.Status != model.EstimateStatusProposed {
			return ErrEstimateNotProposed
		}

		siblings, err := tx.Estimate.ListByRequest(ctx, req.EstimateRequestID)
		if err != nil {
			return err
		}
		for _, e := range siblings {
			if e.EstimateID != estimateID && e.Status == model.EstimateStatusProposed {
				autoDrivers = append(autoDrivers, e.DriverID)
			}
		}

		ok, err := tx.Estimate.UpdateStatus(ctx, estimateID, model.EstimateStatusProposed, model.EstimateStatusAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrEstimateNotProposed
		}
		if _, err := tx.Estimate.AutoRejectSiblings(ctx, req.EstimateRequestID, estimateID); err != nil {
			return err
		}
		ok, err = tx.EstimateRequest.UpdateStatus(ctx, req.EstimateRequestID, model.RequestStatusPending, model.RequestStatusApproved)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRequestNotPending
		}
		est.Status = model.EstimateStatusAccepted
		return nil
	})
	if err != nil {
		if pkgerrors.KindOf(err) == pkgerrors.Internal {
			s.logger.Error("接受报价失败",
				zap.String("customer_id", customerID),
				zap.String("estimate_id", estimateID),
				zap.Error(err))
		}
		return nil, err
	}

	resp := &dto.AcceptEstimateResponse{
		EstimateID:        estimateID,
		EstimateRequestID: est.EstimateRequestID,
		AutoRejected:      len(autoDrivers),
	}
	if idempotent {
		return resp, nil
	}

	s.notifier.Notify(ctx, notify.Event{
		Kind:       notify.KindEstimateAccepted,
		Recipients: []string{est.DriverID},
		RequestID:  est.EstimateRequestID,
		EstimateID: estimateID,
	})
	if len(autoDrivers) > 0 {
		s.notifier.Notify(ctx, notify.Event{
			Kind:       notify.KindEstimateAutoRejected,
			Recipients: autoDrivers,
			RequestID:  est.EstimateRequestID,
		})
	}
	return resp, nil
}
