package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	dialAttempts = 10
	dialBackoff  = 3 * time.Second
)

// Connection RabbitMQ 连接与通道
type Connection struct {
	conn   *amqp091.Connection
	ch     *amqp091.Channel
	logger *zap.Logger
}

// Connect 连接 RabbitMQ，未就绪时按固定间隔重试
func Connect(url string, logger *zap.Logger) (*Connection, error) {
	var err error
	for i := 0; i < dialAttempts; i++ {
		var conn *amqp091.Connection
		conn, err = amqp091.Dial(url)
		if err == nil {
			var ch *amqp091.Channel
			ch, err = conn.Channel()
			if err == nil {
				logger.Info("RabbitMQ 连接成功")
				return &Connection{conn: conn, ch: ch, logger: logger}, nil
			}
			conn.Close()
		}
		logger.Warn("RabbitMQ 未就绪，稍后重试", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(dialBackoff)
	}
	return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
}

// DeclareFanout 声明持久化 fanout 交换机
func (c *Connection) DeclareFanout(exchange string) error {
	return c.ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil)
}

// PublishFanout 向 fanout 交换机发布 JSON 消息
func (c *Connection) PublishFanout(ctx context.Context, exchange string, body []byte) error {
	err := c.ch.PublishWithContext(ctx,
		exchange, // exchange
		"",       // fanout 忽略 routing key
		false,    // mandatory
		false,    // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Transient,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}
	return nil
}

// ConsumeFanout 为本实例声明独占临时队列并绑定到交换机，逐条回调直到 ctx 取消
func (c *Connection) ConsumeFanout(ctx context.Context, exchange string, handle func(body []byte)) error {
	q, err := c.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("声明队列失败: %w", err)
	}
	if err := c.ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return fmt.Errorf("绑定队列失败: %w", err)
	}

	deliveries, err := c.ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("消费队列失败: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("RabbitMQ 投递通道已关闭")
			}
			handle(d.Body)
		}
	}
}

// Close 关闭通道与连接
func (c *Connection) Close() error {
	if c.ch != nil {
		c.ch.Close()
	}
	return c.conn.Close()
}
