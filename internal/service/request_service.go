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
	pkgerrors "moving-team/backend/pkg/errors"
)

// ── 报价申请业务错误 ──

var (
	ErrInvalidMoveType     = pkgerrors.New(pkgerrors.InvalidArgument, "搬家类型无效")
	ErrInvalidMoveDate     = pkgerrors.New(pkgerrors.InvalidArgument, "搬家日期格式应为 YYYY-MM-DD")
	ErrMoveDateInPast      = pkgerrors.New(pkgerrors.InvalidArgument, "搬家日期不能早于今天")
	ErrSameAddress         = pkgerrors.New(pkgerrors.InvalidArgument, "出发地与目的地不能相同")
	ErrAddressNotFound     = pkgerrors.New(pkgerrors.NotFound, "地址不存在")
	ErrCustomerNotFound    = pkgerrors.New(pkgerrors.NotFound, "客户不存在")
	ErrActiveRequestExists = pkgerrors.New(pkgerrors.Conflict, "已有进行中的报价申请")
	ErrNoActiveRequest     = pkgerrors.New(pkgerrors.NotFound, "没有进行中的报价申请")
	ErrCancelNotAllowed    = pkgerrors.New(pkgerrors.InvalidState, "报价已确定的申请不能取消")
)

const dateLayout = "2006-01-02"

// EstimateRequestService 报价申请生命周期接口
type EstimateRequestService interface {
	// Create 创建报价申请；同一客户同时只能有一个进行中的申请
	Create(ctx context.Context, customerID string, req *dto.CreateEstimateRequestRequest) (*dto.EstimateRequestResponse, error)
	// GetActive 进行中：PENDING，或 APPROVED 且搬家日不早于今天
	GetActive(ctx context.Context, customerID string) (*dto.EstimateRequestResponse, error)
	// CancelActive 软删除 PENDING 状态的进行中申请
	CancelActive(ctx context.Context, customerID string) error
}

type estimateRequestService struct {
	repo     *repository.Repository
	resolver AddressResolver
	drivers  DriverDirectory
	notifier notify.Notifier
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewEstimateRequestService 创建 EstimateRequestService 实例
func NewEstimateRequestService(
	repo *repository.Repository,
	resolver AddressResolver,
	drivers DriverDirectory,
	notifier notify.Notifier,
	loc *time.Location,
	logger *zap.Logger,
) EstimateRequestService {
	return &estimateRequestService{
		repo:     repo,
		resolver: resolver,
		drivers:  drivers,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *estimateRequestService) Create(ctx context.Context, customerID string, req *dto.CreateEstimateRequestRequest) (*dto.EstimateRequestResponse, error) {
	moveType := model.MoveType(req.MoveType)
	if !moveType.Valid() {
		return nil, ErrInvalidMoveType
	}
	if req.FromAddressID == req.ToAddressID {
		return nil, ErrSameAddress
	}
	moveDate, err := time.ParseInLocation(dateLayout, req.MoveDate, s.loc)
	if err != nil {
		return nil, ErrInvalidMoveDate
	}
	if moveDate.Before(startOfDay(s.now(), s.loc)) {
		return nil, ErrMoveDateInPast
	}

	from, err := s.resolver.RegionOf(ctx, req.FromAddressID)
	if err != nil {
		return nil, s.addressError(err)
	}
	to, err := s.resolver.RegionOf(ctx, req.ToAddressID)
	if err != nil {
		return nil, s.addressError(err)
	}

	created := &model.EstimateRequest{
		CustomerID:    customerID,
		MoveType:      moveType,
		MoveDate:      moveDate,
		FromAddressID: req.FromAddressID,
		ToAddressID:   req.ToAddressID,
		Status:        model.RequestStatusPending,
	}

	// 锁客户行，串行化同一客户的并发创建
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Customer.LockByID(ctx, customerID); err != nil {
			return notFoundOr(err, ErrCustomerNotFound)
		}
		active, err := tx.EstimateRequest.GetActiveByCustomer(ctx, customerID, startOfDay(s.now(), s.loc))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if active != nil {
			return ErrActiveRequestExists
		}
		return tx.EstimateRequest.Create(ctx, created)
	})
	if err != nil {
		if pkgerrors.KindOf(err) == pkgerrors.Internal {
			s.logger.Error("创建报价申请失败", zap.String("customer_id", customerID), zap.Error(err))
		}
		return nil, err
	}

	s.notifyCreated(ctx, created, from.Region, to.Region)
	return toEstimateRequestResponse(created, s.loc), nil
}

func (s *estimateRequestService) addressError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAddressNotFound
	}
	s.logger.Error("解析地址区域失败", zap.Error(err))
	return err
}

// notifyCreated 通知客户本人与服务区域覆盖出发地或目的地的司机；查询司机失败只影响通知范围
func (s *estimateRequestService) notifyCreated(ctx context.Context, req *model.EstimateRequest, regions ...string) {
	recipients := []string{req.CustomerID}

	driverIDs, err := s.drivers.DriversServicing(ctx, dedupe(regions))
	if err != nil {
		s.logger.Warn("查询服务区域司机失败，仅通知客户",
			zap.String("estimate_request_id", req.EstimateRequestID), zap.Error(err))
	}
	recipients = append(recipients, driverIDs...)

	s.notifier.Notify(ctx, notify.Event{
		Kind:       notify.KindRequestCreated,
		Recipients: recipients,
		RequestID:  req.EstimateRequestID,
	})
}

// ────────────────────── GetActive ──────────────────────

func (s *estimateRequestService) GetActive(ctx context.Context, customerID string) (*dto.EstimateRequestResponse, error) {
	req, err := s.repo.EstimateRequest.GetActiveByCustomer(ctx, customerID, startOfDay(s.now(), s.loc))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveRequest
		}
		s.logger.Error("查询进行中的申请失败", zap.String("customer_id", customerID), zap.Error(err))
		return nil, err
	}
	return toEstimateRequestResponse(req, s.loc), nil
}

// ────────────────────── CancelActive ──────────────────────

func (s *estimateRequestService) CancelActive(ctx context.Context, customerID string) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		req, err := tx.EstimateRequest.LockActiveByCustomer(ctx, customerID, startOfDay(s.now(), s.loc))
		if err != nil {
			return notFoundOr(err, ErrNoActiveRequest)
		}
		if req.Status != model.RequestStatusPending {
			return ErrCancelNotAllowed
		}
		return tx.EstimateRequest.SoftDelete(ctx, req.EstimateRequestID)
	})
	if err != nil && pkgerrors.KindOf(err) == pkgerrors.Internal {
		s.logger.Error("取消报价申请失败", zap.String("customer_id", customerID), zap.Error(err))
	}
	return err
}

// ── 辅助函数 ──

// startOfDay loc 时区下 t 当天零点
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

func toAddressResponse(a *model.Address) *dto.AddressResponse {
	if a == nil {
		return nil
	}
	return &dto.AddressResponse{
		ID:          a.AddressID,
		RoadAddress: a.RoadAddress,
		Region:      a.Region,
		District:    a.District,
	}
}

func toEstimateRequestResponse(req *model.EstimateRequest, loc *time.Location) *dto.EstimateRequestResponse {
	return &dto.EstimateRequestResponse{
		ID:          req.EstimateRequestID,
		CustomerID:  req.CustomerID,
		MoveType:    string(req.MoveType),
		MoveDate:    req.MoveDate.In(loc).Format(dateLayout),
		Status:      string(req.Status),
		FromAddress: toAddressResponse(req.FromAddress),
		ToAddress:   toAddressResponse(req.ToAddress),
		CreatedAt:   req.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
