package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"moving-team/backend/config"
	"moving-team/backend/internal/api/handler"
	"moving-team/backend/internal/api/middleware"
	"moving-team/backend/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, logger *zap.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	customer := middleware.RoleAuth(jwt.RoleCustomer)
	driver := middleware.RoleAuth(jwt.RoleDriver)

	// ── API v1（全部需要认证） ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 报价申请
		requests := v1.Group("/estimate-requests")
		{
			requests.POST("", customer, h.EstimateRequest.CreateRequest)
			requests.GET("/active", customer, h.EstimateRequest.GetActiveRequest)
			requests.DELETE("/active", customer, h.EstimateRequest.CancelActiveRequest)
			requests.POST("/active/designations", customer, h.EstimateRequest.DesignateDriver)
			requests.GET("/active/estimates", customer, h.EstimateRequest.ListReceivedEstimates)
			requests.GET("/active/estimates/export", customer, h.Export.ExportEstimates)
			requests.GET("/:id/calendar", customer, h.Export.MoveCalendar)

			// 司机回应
			requests.GET("/:id/quota", driver, h.Estimate.GetQuota)
			requests.POST("/:id/estimates", driver, h.Estimate.SubmitEstimate)
			requests.POST("/:id/rejections", driver, h.Estimate.RejectRequest)
		}

		// 报价
		estimates := v1.Group("/estimates")
		{
			estimates.GET("/me", driver, h.Estimate.ListMyEstimates)
			estimates.POST("/:id/withdraw", driver, h.Estimate.WithdrawEstimate)
			estimates.POST("/:id/accept", customer, h.Estimate.AcceptEstimate)
		}

		// 站内通知（客户与司机）
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", h.Notification.ListNotifications)
			notifications.PUT("/:id/read", h.Notification.MarkRead)
			notifications.GET("/stream", h.Notification.Stream)
		}

		// 运维
		admin := v1.Group("/admin", middleware.RoleAuth(jwt.RoleAdmin))
		{
			admin.GET("/completion", h.Completion.GetStatus)
			admin.POST("/completion/run", h.Completion.RunNow)
		}
	}

	return r
}
