package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer Kafka 同步写入器封装
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 创建写入指定 topic 的生产者
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Send 写入一条消息；同一 key 落在同一分区以保持顺序
func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

// Close 刷新并关闭写入器
func (p *Producer) Close() error {
	return p.writer.Close()
}
