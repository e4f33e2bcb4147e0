package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"moving-team/backend/config"
	"moving-team/backend/internal/notify"
	"moving-team/backend/internal/repository"
	"moving-team/backend/pkg/kafka"
	"moving-team/backend/pkg/mq"
	"moving-team/backend/pkg/redis"
)

// notifier 通知分发及其持有的外部连接
type notifier struct {
	dispatcher *notify.Dispatcher
	closers    []func() error
}

func (n *notifier) close() {
	for _, c := range n.closers {
		c()
	}
}

// setupNotifier 按 notify.broker 组装 Sink：
//
//	local    站内信 + 本机连接表
//	redis    站内信 + Redis 广播（各实例中继到本机连接表）
//	rabbitmq 站内信 + RabbitMQ fanout（同上）
//
// notify.kafka.enabled 时额外写入业务事件流
func setupNotifier(
	ctx context.Context,
	cfg *config.Config,
	repo *repository.Repository,
	hub *notify.Hub,
	rdb *redis.Client,
	logger *zap.Logger,
) (*notifier, error) {
	n := &notifier{}
	sinks := []notify.Sink{notify.NewStoreSink(repo.Notification)}

	switch cfg.Notify.Broker {
	case "redis":
		sinks = append(sinks, notify.NewRedisSink(rdb, cfg.Notify.Channel))
		go relay(ctx, "redis", logger, func() error {
			return notify.RelayRedis(ctx, rdb, cfg.Notify.Channel, hub, logger)
		})

	case "rabbitmq":
		conn, err := mq.Connect(cfg.Notify.RabbitMQ.URL, logger)
		if err != nil {
			return nil, err
		}
		if err := conn.DeclareFanout(cfg.Notify.RabbitMQ.Exchange); err != nil {
			conn.Close()
			return nil, err
		}
		n.closers = append(n.closers, conn.Close)
		sinks = append(sinks, notify.NewRabbitSink(conn, cfg.Notify.RabbitMQ.Exchange))
		go relay(ctx, "rabbitmq", logger, func() error {
			return notify.RelayRabbit(ctx, conn, cfg.Notify.RabbitMQ.Exchange, hub, logger)
		})

	default:
		sinks = append(sinks, notify.NewHubSink(hub))
	}

	if cfg.Notify.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Notify.Kafka.Brokers, cfg.Notify.Kafka.Topic)
		n.closers = append(n.closers, producer.Close)
		sinks = append(sinks, notify.NewKafkaSink(producer))
		logger.Info("业务事件流已启用", zap.String("topic", cfg.Notify.Kafka.Topic))
	}

	n.dispatcher = notify.NewDispatcher(cfg.Notify.Timeout, logger, sinks...)
	return n, nil
}

// relay 运行广播中继，ctx 取消前退出视为异常
func relay(ctx context.Context, name string, logger *zap.Logger, run func() error) {
	err := run()
	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = errors.New("中继意外退出")
	}
	logger.Error("通知广播中继已停止，实时推送不可用", zap.String("broker", name), zap.Error(err))
}
