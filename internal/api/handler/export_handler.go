package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"moving-team/backend/internal/service"
	"moving-team/backend/pkg/response"
)

const (
	contentTypeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCalendar = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportEstimates 导出进行中申请的报价对比表
// GET /api/v1/estimate-requests/active/estimates/export
func (h *ExportHandler) ExportEstimates(c *gin.Context) {
	customerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportEstimates(c.Request.Context(), customerID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	attachment(c, filename, contentTypeXLSX, buf.Bytes())
}

// MoveCalendar 导出搬家日程（.ics）
// GET /api/v1/estimate-requests/:id/calendar
func (h *ExportHandler) MoveCalendar(c *gin.Context) {
	customerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	requestID := c.Param("id")
	if requestID == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	buf, filename, err := h.exportSvc.MoveCalendar(c.Request.Context(), customerID, requestID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	attachment(c, filename, contentTypeCalendar, buf.Bytes())
}

// attachment 设置下载响应头并输出文件
func attachment(c *gin.Context, filename, contentType string, data []byte) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, data)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveRequest):
		response.FromError(c, 25001, err)
	case errors.Is(err, service.ErrExportNoEstimates):
		response.FromError(c, 25002, err)
	case errors.Is(err, service.ErrRequestNotFound):
		response.FromError(c, 25003, err)
	case errors.Is(err, service.ErrCalendarNotAvailable):
		response.FromError(c, 25004, err)
	default:
		response.InternalError(c)
	}
}
