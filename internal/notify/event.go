package notify

//go:generate mockgen -destination=mocks/mock_notifier.go -package=mocks moving-team/backend/internal/notify Notifier

import (
	"context"
	"time"
)

// Kind 通知事件类型
type Kind string

const (
	KindRequestCreated       Kind = "request_created"
	KindDriverDesignated     Kind = "driver_designated"
	KindEstimateProposed     Kind = "estimate_proposed"
	KindRequestRejected      Kind = "request_rejected" // 指定司机全部拒绝
	KindEstimateAccepted     Kind = "estimate_accepted"
	KindEstimateAutoRejected Kind = "estimate_auto_rejected"
	KindMoveCompleted        Kind = "move_completed"
)

// Event 业务事件，Recipients 为 customer_id / driver_id
type Event struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Recipients []string  `json:"recipients"`
	RequestID  string    `json:"request_id,omitempty"`
	EstimateID string    `json:"estimate_id,omitempty"`
	Content    string    `json:"content"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier 通知分发入口
// 只在业务事务提交后调用；实现不得阻塞调用方，失败只记日志
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Nop 丢弃所有事件
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// DefaultContent 各事件类型的默认文案
func DefaultContent(kind Kind) string {
	switch kind {
	case KindRequestCreated:
		return "有新的搬家报价申请"
	case KindDriverDesignated:
		return "客户指定您为搬家司机"
	case KindEstimateProposed:
		return "收到新的司机报价"
	case KindRequestRejected:
		return "所有指定司机均已拒绝您的申请"
	case KindEstimateAccepted:
		return "您的报价已被客户接受"
	case KindEstimateAutoRejected:
		return "客户已选择其他司机的报价"
	case KindMoveCompleted:
		return "搬家已完成"
	default:
		return string(kind)
	}
}
