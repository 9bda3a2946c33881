package service

import (
	"context"
	"fmt"
	"time"

	"leadcrm/internal/store"
)

const messageKeyPrefix = "leadcrm:messages:"

// Success messages shown once after a redirect-style action.
const (
	LeadCreatedMessage = "The lead has been successfully created"
	LeadUpdatedMessage = "The lead has been successfully updated"
	LeadDeletedMessage = "The lead has been successfully deleted"

	FollowUpCreatedMessage = "The follow-up has been successfully created"
	FollowUpUpdatedMessage = "The follow-up has been successfully updated"
	FollowUpDeletedMessage = "The follow-up has been successfully deleted"
)

// AgentAssignedMessage "The <username> has been assigned to <first> <last>"
func AgentAssignedMessage(username, firstName, lastName string) string {
	return fmt.Sprintf("The %s has been assigned to %s %s", username, firstName, lastName)
}

// CategoryMessage "The <name> category has been successfully <action>"
func CategoryMessage(name, action string) string {
	return fmt.Sprintf("The %s category has been successfully %s", name, action)
}

// AgentMessage "The agent <username> has been successfully <action>"
func AgentMessage(username, action string) string {
	return fmt.Sprintf("The agent %s has been successfully %s", username, action)
}

// Messages 会话级一次性提示（flash），存放在 KV 列表中
type Messages struct {
	kv  store.KV
	ttl time.Duration
}

// NewMessages 创建提示队列
func NewMessages(kv store.KV, ttl time.Duration) *Messages {
	return &Messages{kv: kv, ttl: ttl}
}

// Add queues a message for the session.
func (m *Messages) Add(ctx context.Context, session, message string) error {
	if session == "" {
		return nil
	}
	return m.kv.Push(ctx, messageKeyPrefix+session, message, m.ttl)
}

// Pop returns and clears the session's queued messages.
func (m *Messages) Pop(ctx context.Context, session string) ([]string, error) {
	if session == "" {
		return []string{}, nil
	}
	msgs, err := m.kv.PopAll(ctx, messageKeyPrefix+session)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	if msgs == nil {
		msgs = []string{}
	}
	return msgs, nil
}
