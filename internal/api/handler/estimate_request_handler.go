package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"moving-team/backend/internal/dto"
	"moving-team/backend/internal/service"
	"moving-team/backend/pkg/response"
)

// EstimateRequestHandler 报价申请模块 HTTP 处理器（客户侧）
type EstimateRequestHandler struct {
	requestSvc     service.EstimateRequestService
	designationSvc service.DesignationService
	estimateSvc    service.EstimateService
}

// NewEstimateRequestHandler 创建 EstimateRequestHandler
func NewEstimateRequestHandler(
	requestSvc service.EstimateRequestService,
	designationSvc service.DesignationService,
	estimateSvc service.EstimateService,
) *EstimateRequestHandler {
	return &EstimateRequestHandler{
		requestSvc:     requestSvc,
		designationSvc: designationSvc,
		estimateSvc:    estimateSvc,
	}
}

// CreateRequest 创建报价申请
// POST /api/v1/estimate-requests
func (h *EstimateRequestHandler) CreateRequest(c *gin.Context) {
	customerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateEstimateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.requestSvc.Create(c.Request.Context(), customerID, &req)
	if err != nil {
		h.handleRequestError(c, err)
		return
	}

	response.Created(c, resp)
}

// GetActiveRequest 获取进行中的报价申请
// GET /api/v1/estimate-requests/active
func (h *EstimateRequestHandler) GetActiveRequest(c *gin.Context) {
	customerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.requestSvc.GetActive(c.Request.Context(), customerID)
	if err != nil {
		h.handleRequestError(c, err)
		return
	}

	response.OK(c, resp)
}

// CancelActiveRequest 取消进行中的报价申请（仅 PENDING）
// DELETE /api/v1/estimate-requests/active
func (h *EstimateRequestHandler) CancelActiveRequest(c *gin.Context) {
	customerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.requestSvc.CancelActive(c.Request.Context(), customerID); err != nil {
		h.handleRequestError(c, err)
		return
	}

	response.OK(c, nil)
}

// DesignateDriver 为进行中的申请指定司机
// POST /api/v1/estimate-requests/active/designations
func (h *EstimateRequestHandler) DesignateDriver(c *gin.Context) {
	customerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.DesignateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.designationSvc.Designate(c.Request.Context(), customerID, &req)
	if err != nil {
		h.handleRequestError(c, err)
		return
	}

	response.Created(c, resp)
}

// ListReceivedEstimates 进行中的申请收到的报价
// GET /api/v1/estimate-requests/active/estimates
func (h *EstimateRequestHandler) ListReceivedEstimates(c *gin.Context) {
	customerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.estimateSvc.ListReceived(c.Request.Context(), customerID)
	if err != nil {
		h.handleRequestError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// handleRequestError 统一处理报价申请模块业务错误
func (h *EstimateRequestHandler) handleRequestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidMoveType):
		response.FromError(c, 21001, err)
	case errors.Is(err, service.ErrInvalidMoveDate):
		response.FromError(c, 21002, err)
	case errors.Is(err, service.ErrMoveDateInPast):
		response.FromError(c, 21003, err)
	case errors.Is(err, service.ErrSameAddress):
		response.FromError(c, 21004, err)
	case errors.Is(err, service.ErrAddressNotFound):
		response.FromError(c, 21005, err)
	case errors.Is(err, service.ErrCustomerNotFound):
		response.FromError(c, 21006, err)
	case errors.Is(err, service.ErrActiveRequestExists):
		response.FromError(c, 21007, err)
	case errors.Is(err, service.ErrNoActiveRequest):
		response.FromError(c, 21008, err)
	case errors.Is(err, service.ErrCancelNotAllowed):
		response.FromError(c, 21009, err)
	// ── 指定司机 ──
	case errors.Is(err, service.ErrDriverNotFound):
		response.FromError(c, 21101, err)
	case errors.Is(err, service.ErrDesignationClosed):
		response.FromError(c, 21102, err)
	case errors.Is(err, service.ErrAlreadyDesignated):
		response.FromError(c, 21103, err)
	case errors.Is(err, service.ErrDesignationLimit):
		response.FromError(c, 21104, err)
	case errors.Is(err, service.ErrDesignationBelowUsage):
		response.FromError(c, 21105, err)
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/estimate_request_handler.go
