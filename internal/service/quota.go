package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"moving-team/backend/internal/model"
	"moving-team/backend/internal/repository"
	pkgerrors "moving-team/backend/pkg/errors"
)

// ── 回应名额业务错误 ──

var (
	ErrRequestNotFound     = pkgerrors.New(pkgerrors.NotFound, "报价申请不存在")
	ErrRequestNotPending   = pkgerrors.New(pkgerrors.InvalidState, "报价申请已结束，不再接收回应")
	ErrDriverNotDesignated = pkgerrors.New(pkgerrors.Conflict, "该申请仅接受指定司机回应")
	ErrAlreadyResponded    = pkgerrors.New(pkgerrors.Conflict, "已对该申请作出回应")
	ErrQuotaExhausted      = pkgerrors.New(pkgerrors.Conflict, "该申请的回应名额已满")
)

// 名额判定原因
const (
	QuotaReasonRequestClosed    = "request_closed"
	QuotaReasonNotDesignated    = "not_designated"
	QuotaReasonAlreadyResponded = "already_responded"
	QuotaReasonExhausted        = "quota_exhausted"
)

// QuotaPolicy 回应名额规则
//
//	limit = 指定司机数 > 0 ? 指定司机数 : OpenQuota
//	used  = 未删除报价数 + 拒绝数
//	used < limit 时可回应
type QuotaPolicy struct {
	OpenQuota     int
	MaxDesignated int
}

// Limit 按当前指定司机数计算上限
func (p QuotaPolicy) Limit(designatedCount int) int {
	if designatedCount > 0 {
		return designatedCount
	}
	return p.OpenQuota
}

// QuotaDecision 名额判定结果
type QuotaDecision struct {
	Allowed bool
	Limit   int
	Used    int
	Reason  string
}

// responseSnapshot 判定所需的申请现状，写入路径在持有申请行锁时读取
type responseSnapshot struct {
	status     model.RequestStatus
	designated []string
	estimates  int64
	rejections int64
	// 指定司机本人的拒绝数，用于判断是否全部指定司机都已拒绝
	designatedRejections int64
	hasEstimate          bool
	hasRejection         bool
}

func (s *responseSnapshot) isDesignatedMode() bool { return len(s.designated) > 0 }

func (s *responseSnapshot) isDesignated(driverID string) bool {
	for _, id := range s.designated {
		if id == driverID {
			return true
		}
	}
	return false
}

// Decide 参考查询与写入路径共用同一判定
func (p QuotaPolicy) Decide(s *responseSnapshot, driverID string) QuotaDecision {
	d := QuotaDecision{
		Limit: p.Limit(len(s.designated)),
		Used:  int(s.estimates + s.rejections),
	}
	switch {
	case s.status != model.RequestStatusPending:
		d.Reason = QuotaReasonRequestClosed
	case s.isDesignatedMode() && !s.isDesignated(driverID):
		d.Reason = QuotaReasonNotDesignated
	case s.hasEstimate || s.hasRejection:
		d.Reason = QuotaReasonAlreadyResponded
	case d.Used >= d.Limit:
		d.Reason = QuotaReasonExhausted
	default:
		d.Allowed = true
	}
	return d
}

// decisionError 将拒绝原因映射为业务错误
func decisionError(d QuotaDecision) error {
	switch d.Reason {
	case "":
		return nil
	case QuotaReasonRequestClosed:
		return ErrRequestNotPending
	case QuotaReasonNotDesignated:
		return ErrDriverNotDesignated
	case QuotaReasonAlreadyResponded:
		return ErrAlreadyResponded
	default:
		return ErrQuotaExhausted
	}
}

// loadSnapshot 读取申请的回应现状；repo 为事务聚合时读取结果受申请行锁保护
func loadSnapshot(ctx context.Context, repo *repository.Repository, req *model.EstimateRequest, driverID string) (*responseSnapshot, error) {
	designated, err := repo.DesignatedDriver.ListDriverIDsByRequest(ctx, req.EstimateRequestID)
	if err != nil {
		return nil, err
	}
	estimates, err := repo.Estimate.CountByRequest(ctx, req.EstimateRequestID)
	if err != nil {
		return nil, err
	}
	rejections, err := repo.Rejection.CountByRequest(ctx, req.EstimateRequestID)
	if err != nil {
		return nil, err
	}
	designatedRejections, err := repo.Rejection.CountByRequestAndDrivers(ctx, req.EstimateRequestID, designated)
	if err != nil {
		return nil, err
	}
	hasEstimate, err := repo.Estimate.ExistsByDriverAndRequest(ctx, driverID, req.EstimateRequestID)
	if err != nil {
		return nil, err
	}
	hasRejection, err := repo.Rejection.ExistsByDriverAndRequest(ctx, driverID, req.EstimateRequestID)
	if err != nil {
		return nil, err
	}
	return &responseSnapshot{
		status:     req.Status,
		designated: designated,
		estimates:  estimates,
		rejections: rejections,

		designatedRejections: designatedRejections,
		hasEstimate:          hasEstimate,
		hasRejection:         hasRejection,
	}, nil
}

func notFoundOr(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
