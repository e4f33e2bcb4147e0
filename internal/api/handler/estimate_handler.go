package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"moving-team/backend/internal/dto"
	"moving-team/backend/internal/service"
	"moving-team/backend/pkg/response"
)

// EstimateHandler 报价模块 HTTP 处理器（司机回应 + 客户接受）
type EstimateHandler struct {
	estimateSvc   service.EstimateService
	acceptanceSvc service.AcceptanceService
}

// NewEstimateHandler 创建 EstimateHandler
func NewEstimateHandler(estimateSvc service.EstimateService, acceptanceSvc service.AcceptanceService) *EstimateHandler {
	return &EstimateHandler{estimateSvc: estimateSvc, acceptanceSvc: acceptanceSvc}
}

// GetQuota 查询司机能否回应（仅供参考）
// GET /api/v1/estimate-requests/:id/quota
func (h *EstimateHandler) GetQuota(c *gin.Context) {
	driverID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	requestID := c.Param("id")
	if requestID == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	resp, err := h.estimateSvc.CanRespond(c.Request.Context(), driverID, requestID)
	if err != nil {
		h.handleEstimateError(c, err)
		return
	}

	response.OK(c, resp)
}

// SubmitEstimate 司机提交报价
// POST /api/v1/estimate-requests/:id/estimates
func (h *EstimateHandler) SubmitEstimate(c *gin.Context) {
	driverID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	requestID := c.Param("id")
	if requestID == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	var req dto.SubmitEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.estimateSvc.Submit(c.Request.Context(), driverID, requestID, &req)
	if err != nil {
		h.handleEstimateError(c, err)
		return
	}

	response.Created(c, resp)
}

// RejectRequest 司机拒绝申请
// POST /api/v1/estimate-requests/:id/rejections
func (h *EstimateHandler) RejectRequest(c *gin.Context) {
	driverID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	requestID := c.Param("id")
	if requestID == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	var req dto.RejectRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.estimateSvc.Reject(c.Request.Context(), driverID, requestID, &req)
	if err != nil {
		h.handleEstimateError(c, err)
		return
	}

	response.Created(c, resp)
}

// WithdrawEstimate 司机撤回自己的报价
// POST /api/v1/estimates/:id/withdraw
func (h *EstimateHandler) WithdrawEstimate(c *gin.Context) {
	driverID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.estimateSvc.Withdraw(c.Request.Context(), driverID, c.Param("id"))
	if err != nil {
		h.handleEstimateError(c, err)
		return
	}

	response.OK(c, resp)
}

// ListMyEstimates 司机的报价列表
// GET /api/v1/estimates/me
func (h *EstimateHandler) ListMyEstimates(c *gin.Context) {
	driverID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	page, ok := mustBindPage(c)
	if !ok {
		return
	}

	list, total, err := h.estimateSvc.ListMine(c.Request.Context(), driverID, page)
	if err != nil {
		h.handleEstimateError(c, err)
		return
	}

	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// AcceptEstimate 客户接受报价
// POST /api/v1/estimates/:id/accept
func (h *EstimateHandler) AcceptEstimate(c *gin.Context) {
	customerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.acceptanceSvc.Accept(c.Request.Context(), customerID, c.Param("id"))
	if err != nil {
		h.handleEstimateError(c, err)
		return
	}

	response.OK(c, resp)
}

// handleEstimateError 统一处理报价模块业务错误
func (h *EstimateHandler) handleEstimateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPrice):
		response.FromError(c, 22001, err)
	case errors.Is(err, service.ErrRequestNotFound):
		response.FromError(c, 22002, err)
	case errors.Is(err, service.ErrRequestNotPending):
		response.FromError(c, 22003, err)
	case errors.Is(err, service.ErrDriverNotDesignated):
		response.FromError(c, 22004, err)
	case errors.Is(err, service.ErrAlreadyResponded):
		response.FromError(c, 22005, err)
	case errors.Is(err, service.ErrQuotaExhausted):
		response.FromError(c, 22006, err)
	case errors.Is(err, service.ErrDuplicateEstimate):
		response.FromError(c, 22007, err)
	case errors.Is(err, service.ErrDuplicateRejection):
		response.FromError(c, 22008, err)
	case errors.Is(err, service.ErrEstimateNotFound):
		response.FromError(c, 22009, err)
	case errors.Is(err, service.ErrEstimateNotProposed):
		response.FromError(c, 22010, err)
	default:
		response.InternalError(c)
	}
}
