package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink 事件落地目标：站内信表、本机连接表、跨实例广播、事件流
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event Event) error
}

// Dispatcher 异步分发器
// Notify 立即返回，事件在独立 goroutine 中依次写入各 Sink；单个 Sink 失败不影响其他 Sink
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time

	wg sync.WaitGroup
}

// NewDispatcher 创建分发器，timeout 为单个事件全部 Sink 的总时限
func NewDispatcher(timeout time.Duration, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Notify 实现 Notifier
func (d *Dispatcher) Notify(ctx context.Context, event Event) {
	if len(event.Recipients) == 0 {
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now()
	}
	if event.Content == "" {
		event.Content = DefaultContent(event.Kind)
	}

	// 请求结束后 ctx 会被取消，分发不随之中断
	base := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("通知分发 panic",
					zap.Any("panic", r),
					zap.String("event_id", event.ID),
					zap.String("kind", string(event.Kind)))
			}
		}()

		dctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()

		for _, sink := range d.sinks {
			if err := sink.Deliver(dctx, event); err != nil {
				d.logger.Warn("通知投递失败",
					zap.String("sink", sink.Name()),
					zap.String("event_id", event.ID),
					zap.String("kind", string(event.Kind)),
					zap.Error(err))
			}
		}
	}()
}

// Wait 等待已提交的事件分发完毕（优雅关闭、测试）
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
