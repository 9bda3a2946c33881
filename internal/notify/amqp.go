package notify

import (
	"context"
	"fmt"
)

// AMQPPublisher is satisfied by common/amqp.Client.
type AMQPPublisher interface {
	PublishJSON(ctx context.Context, body []byte) error
}

// AMQPNotifier publishes JSON messages to a RabbitMQ exchange.
type AMQPNotifier struct {
	pub  AMQPPublisher
	from string
}

func NewAMQPNotifier(pub AMQPPublisher, from string) *AMQPNotifier {
	return &AMQPNotifier{pub: pub, from: from}
}

func (n *AMQPNotifier) Send(ctx context.Context, to, subject, body string) error {
	payload, err := newMessage(n.from, to, subject, body).encode()
	if err != nil {
		return err
	}
	if err := n.pub.PublishJSON(ctx, payload); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
