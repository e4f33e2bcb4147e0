package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"moving-team/backend/internal/model"
	"moving-team/backend/internal/repository"
)

// ── 站内信 ──

// StoreSink 按收件人写入 notifications 表
type StoreSink struct {
	repo repository.NotificationRepository
}

// NewStoreSink 创建站内信 Sink
func NewStoreSink(repo repository.NotificationRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Deliver(ctx context.Context, event Event) error {
	relatedType, relatedID := "estimate_request", event.RequestID
	if event.EstimateID != "" {
		relatedType, relatedID = "estimate", event.EstimateID
	}

	list := make([]model.Notification, 0, len(event.Recipients))
	for _, userID := range event.Recipients {
		n := model.Notification{
			UserID:  userID,
			Type:    string(event.Kind),
			Content: event.Content,
		}
		if relatedID != "" {
			rt, rid := relatedType, relatedID
			n.RelatedType = &rt
			n.RelatedID = &rid
		}
		list = append(list, n)
	}
	return s.repo.BatchCreate(ctx, list)
}

// ── 本机连接 ──

// HubSink 直接推送到本实例的连接表（单实例部署）
type HubSink struct {
	hub *Hub
}

// NewHubSink 创建本机推送 Sink
func NewHubSink(hub *Hub) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Name() string { return "hub" }

func (s *HubSink) Deliver(_ context.Context, event Event) error {
	s.hub.Deliver(event)
	return nil
}

// ── 跨实例广播 ──

// ChannelPublisher Redis 频道发布（*redis.Client 实现）
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// ChannelSubscriber Redis 频道订阅（*redis.Client 实现）
type ChannelSubscriber interface {
	Subscribe(ctx context.Context, channel string, handle func(payload []byte)) error
}

// RedisSink 经 Redis pub/sub 广播到所有实例，由各实例的 RelayRedis 写入本机连接表
type RedisSink struct {
	pub     ChannelPublisher
	channel string
}

// NewRedisSink 创建 Redis 广播 Sink
func NewRedisSink(pub ChannelPublisher, channel string) *RedisSink {
	return &RedisSink{pub: pub, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.pub.Publish(ctx, s.channel, body)
}

// FanoutPublisher RabbitMQ fanout 发布（*mq.Connection 实现）
type FanoutPublisher interface {
	PublishFanout(ctx context.Context, exchange string, body []byte) error
}

// FanoutConsumer RabbitMQ fanout 消费（*mq.Connection 实现）
type FanoutConsumer interface {
	ConsumeFanout(ctx context.Context, exchange string, handle func(body []byte)) error
}

// RabbitSink 经 RabbitMQ fanout 交换机广播到所有实例
type RabbitSink struct {
	pub      FanoutPublisher
	exchange string
}

// NewRabbitSink 创建 RabbitMQ 广播 Sink
func NewRabbitSink(pub FanoutPublisher, exchange string) *RabbitSink {
	return &RabbitSink{pub: pub, exchange: exchange}
}

func (s *RabbitSink) Name() string { return "rabbitmq" }

func (s *RabbitSink) Deliver(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.pub.PublishFanout(ctx, s.exchange, body)
}

// RelayRedis 订阅 Redis 频道并写入本机连接表，阻塞直到 ctx 取消
func RelayRedis(ctx context.Context, sub ChannelSubscriber, channel string, hub *Hub, logger *zap.Logger) error {
	return sub.Subscribe(ctx, channel, relayHandler(hub, logger))
}

// RelayRabbit 消费 RabbitMQ fanout 并写入本机连接表，阻塞直到 ctx 取消
func RelayRabbit(ctx context.Context, consumer FanoutConsumer, exchange string, hub *Hub, logger *zap.Logger) error {
	return consumer.ConsumeFanout(ctx, exchange, relayHandler(hub, logger))
}

func relayHandler(hub *Hub, logger *zap.Logger) func([]byte) {
	return func(body []byte) {
		var event Event
		if err := json.Unmarshal(body, &event); err != nil {
			logger.Warn("忽略无法解析的广播消息", zap.Error(err))
			return
		}
		hub.Deliver(event)
	}
}

// ── 事件流 ──

// MessageSender Kafka 写入（*kafka.Producer 实现）
type MessageSender interface {
	Send(ctx context.Context, key, value []byte) error
}

// KafkaSink 将业务事件写入 Kafka，按申请 ID 分区保证同一申请的事件有序
type KafkaSink struct {
	sender MessageSender
}

// NewKafkaSink 创建事件流 Sink
func NewKafkaSink(sender MessageSender) *KafkaSink {
	return &KafkaSink{sender: sender}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	key := event.RequestID
	if key == "" {
		key = event.ID
	}
	if err := s.sender.Send(ctx, []byte(key), body); err != nil {
		return fmt.Errorf("写入事件流失败: %w", err)
	}
	return nil
}
