package handler

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"moving-team/backend/internal/service"
	"moving-team/backend/pkg/response"
)

const sseHeartbeat = 25 * time.Second

// NotificationHandler 站内通知 HTTP 处理器
type NotificationHandler struct {
	notifSvc  service.NotificationService
	heartbeat time.Duration
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notifSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifSvc: notifSvc, heartbeat: sseHeartbeat}
}

// ListNotifications 我的通知（分页）
// GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	page, ok := mustBindPage(c)
	if !ok {
		return
	}

	list, total, err := h.notifSvc.List(c.Request.Context(), userID, page)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// MarkRead 标记已读
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notifSvc.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			response.FromError(c, 24001, err)
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}

// Stream 实时通知推送（SSE）
// GET /api/v1/notifications/stream
//
// 事件名为通知类型，数据为 notify.Event 的 JSON；空闲时定期发送 ping
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	sub := h.notifSvc.Subscribe(userID)
	defer h.notifSvc.Unsubscribe(sub)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.SSEvent("ready", gin.H{"user_id": userID})
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, open := <-sub.C:
			if !open {
				return false
			}
			c.SSEvent(string(e.Kind), e)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
