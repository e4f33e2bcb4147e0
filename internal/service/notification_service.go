package service

import (
	"context"

	"go.uber.org/zap"

	"moving-team/backend/internal/dto"
	"moving-team/backend/internal/model"
	"moving-team/backend/internal/notify"
	"moving-team/backend/internal/repository"
	pkgerrors "moving-team/backend/pkg/errors"
)

var ErrNotificationNotFound = pkgerrors.New(pkgerrors.NotFound, "通知不存在")

// NotificationService 站内通知接口
type NotificationService interface {
	List(ctx context.Context, userID string, page *dto.PaginationRequest) ([]dto.NotificationResponse, int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	// Subscribe 登记实时推送连接，调用方负责 Unsubscribe
	Subscribe(userID string) *notify.Subscription
	Unsubscribe(sub *notify.Subscription)
}

type notificationService struct {
	repo   *repository.Repository
	hub    *notify.Hub
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, hub *notify.Hub, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, hub: hub, logger: logger}
}

func (s *notificationService) List(ctx context.Context, userID string, page *dto.PaginationRequest) ([]dto.NotificationResponse, int64, error) {
	list, total, err := s.repo.Notification.ListByUser(ctx, userID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		result = append(result, toNotificationResponse(&list[i]))
	}
	return result, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	ok, err := s.repo.Notification.MarkRead(ctx, notificationID, userID)
	if err != nil {
		s.logger.Error("标记通知已读失败", zap.String("notification_id", notificationID), zap.Error(err))
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *notificationService) Subscribe(userID string) *notify.Subscription {
	return s.hub.Subscribe(userID)
}

func (s *notificationService) Unsubscribe(sub *notify.Subscription) {
	s.hub.Unsubscribe(sub)
}

func toNotificationResponse(n *model.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:          n.NotificationID,
		Type:        n.Type,
		Content:     n.Content,
		IsRead:      n.IsRead,
		RelatedType: n.RelatedType,
		RelatedID:   n.RelatedID,
		CreatedAt:   n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
