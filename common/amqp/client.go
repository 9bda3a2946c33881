package amqp

import (
	"context"
	"fmt"

	"leadcrm/common/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client RabbitMQ 发布端封装（只负责声明 exchange 并发布）
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.AMQPConfig
}

// Dial 连接 RabbitMQ 并声明 exchange
func Dial(cfg *config.AMQPConfig) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c := &Client{conn: conn, channel: ch, config: cfg}
	if err := c.declareExchange(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) declareExchange() error {
	err := c.channel.ExchangeDeclare(
		c.config.Exchange,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", c.config.Exchange, err)
	}
	return nil
}

// PublishJSON 发布 JSON 消息到配置的 exchange/routing key
func (c *Client) PublishJSON(ctx context.Context, body []byte) error {
	err := c.channel.PublishWithContext(ctx,
		c.config.Exchange,
		c.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to exchange %s: %w", c.config.Exchange, err)
	}
	return nil
}

// Close 关闭 channel 与连接
func (c *Client) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
