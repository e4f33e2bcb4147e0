package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"moving-team/backend/internal/dto"
	"moving-team/backend/internal/scheduler"
	"moving-team/backend/pkg/response"
)

// CompletionRunner 搬家完成批处理（由 scheduler.CompletionScheduler 实现）
type CompletionRunner interface {
	Status(ctx context.Context) scheduler.Status
	RunManually(ctx context.Context) (scheduler.RunResult, error)
}

// CompletionHandler 批处理运维接口（仅管理员）
type CompletionHandler struct {
	runner CompletionRunner
	logger *zap.Logger
}

// NewCompletionHandler 创建 CompletionHandler
func NewCompletionHandler(runner CompletionRunner, logger *zap.Logger) *CompletionHandler {
	return &CompletionHandler{runner: runner, logger: logger}
}

// GetStatus 批处理状态
// GET /api/v1/admin/completion
func (h *CompletionHandler) GetStatus(c *gin.Context) {
	st := h.runner.Status(c.Request.Context())

	resp := dto.CompletionStatusResponse{Running: st.Running}
	if !st.LastRunTime.IsZero() {
		resp.LastRunTime = st.LastRunTime.Format(time.RFC3339)
	}
	response.OK(c, resp)
}

// RunNow 立即执行一次（忽略最小间隔，仍受单实例执行限制）
// POST /api/v1/admin/completion/run
func (h *CompletionHandler) RunNow(c *gin.Context) {
	result, err := h.runner.RunManually(c.Request.Context())
	if err != nil {
		// 已提交的批次不回滚，需要运维介入
		h.logger.Error("手动执行完成批处理失败",
			zap.Int("batches", result.Batches),
			zap.Int64("completed", result.Completed),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, 26001, "批处理执行失败")
		return
	}

	response.OK(c, dto.CompletionRunResponse{
		Skipped:   result.Skipped,
		Reason:    result.Reason,
		Batches:   result.Batches,
		Completed: result.Completed,
	})
}
