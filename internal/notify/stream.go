package notify

import (
	"context"
	"fmt"

	commonredis "leadcrm/common/redis"

	"github.com/go-redis/redis/v8"
)

// StreamNotifier publishes messages to a Redis stream for a mail worker to consume.
type StreamNotifier struct {
	client *redis.Client
	stream string
	from   string
}

func NewStreamNotifier(client *redis.Client, stream, from string) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream, from: from}
}

func (n *StreamNotifier) Send(ctx context.Context, to, subject, body string) error {
	if _, err := commonredis.PublishJSONToStream(ctx, n.client, n.stream, newMessage(n.from, to, subject, body)); err != nil {
		return fmt.Errorf("failed to publish notification to stream %s: %w", n.stream, err)
	}
	return nil
}
