package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier POSTs the message as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	from   string
}

func NewWebhookNotifier(url, from string) *WebhookNotifier {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	return &WebhookNotifier{client: client, url: url, from: from}
}

func (n *WebhookNotifier) Send(ctx context.Context, to, subject, body string) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(newMessage(n.from, to, subject, body)).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to call notification webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode())
	}
	return nil
}
