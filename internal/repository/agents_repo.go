package repository

import (
	"context"

	"leadcrm/internal/domain"
)

// AgentsRepository agent Repository接口（按组织隔离）
type AgentsRepository interface {
	// ListAgents 返回组织内所有 agent（含 User）
	ListAgents(ctx context.Context, organizationID string) ([]*domain.Agent, error)
	GetAgent(ctx context.Context, organizationID, agentID string) (*domain.Agent, error)

	// DeleteAgent 删除 agent 及其用户；其线索变为未分配
	DeleteAgent(ctx context.Context, organizationID, agentID string) error
}
