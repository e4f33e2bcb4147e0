package notify

import (
	"sync"

	"go.uber.org/zap"
)

const subscriptionBuffer = 16

// Subscription 单条 SSE 连接的事件通道
type Subscription struct {
	UserID string
	C      <-chan Event

	ch chan Event
}

// Hub 本实例的用户连接表：user_id → 订阅集合
// 同一用户允许多个连接（多标签页），慢连接的事件直接丢弃
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	logger *zap.Logger
}

// NewHub 创建连接表
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe 为用户登记一条连接
func (h *Hub) Subscribe(userID string) *Subscription {
	ch := make(chan Event, subscriptionBuffer)
	sub := &Subscription{UserID: userID, C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[userID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe 注销连接并关闭其通道，可重复调用
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.UserID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sub.UserID)
	}
}

// Deliver 推送给事件中在本实例有连接的收件人，返回送达的连接数
func (h *Hub) Deliver(event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, userID := range event.Recipients {
		for sub := range h.subs[userID] {
			select {
			case sub.ch <- event:
				delivered++
			default:
				h.logger.Warn("SSE 连接积压，丢弃事件",
					zap.String("user_id", userID),
					zap.String("kind", string(event.Kind)))
			}
		}
	}
	return delivered
}

// Online 用户在本实例的连接数
func (h *Hub) Online(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
