package notify

import (
	"context"
	"fmt"
)

// MQTTPublisher is satisfied by common/mqtt.Client.
type MQTTPublisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// MQTTNotifier publishes JSON messages on a topic.
type MQTTNotifier struct {
	pub   MQTTPublisher
	topic string
	from  string
}

func NewMQTTNotifier(pub MQTTPublisher, topic, from string) *MQTTNotifier {
	return &MQTTNotifier{pub: pub, topic: topic, from: from}
}

func (n *MQTTNotifier) Send(_ context.Context, to, subject, body string) error {
	payload, err := newMessage(n.from, to, subject, body).encode()
	if err != nil {
		return err
	}
	if err := n.pub.Publish(n.topic, false, payload); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
