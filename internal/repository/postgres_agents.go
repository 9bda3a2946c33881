package repository

import (
	"context"
	"database/sql"
	"fmt"

	"leadcrm/internal/domain"
)

// PostgresAgentsRepository agent Repository实现
type PostgresAgentsRepository struct {
	db *sql.DB
}

// NewPostgresAgentsRepository 创建 agent Repository
func NewPostgresAgentsRepository(db *sql.DB) *PostgresAgentsRepository {
	return &PostgresAgentsRepository{db: db}
}

var _ AgentsRepository = (*PostgresAgentsRepository)(nil)

const agentSelect = `
	SELECT
		a.agent_id::text,
		a.user_id::text,
		a.organization_id::text,
		u.username,
		u.email,
		u.first_name,
		u.last_name,
		u.created_at
	FROM agents a
	JOIN users u ON u.user_id = a.user_id
`

func scanAgent(row interface{ Scan(dest ...any) error }) (*domain.Agent, error) {
	var a domain.Agent
	u := &domain.User{RoleKind: domain.RoleAgent}
	if err := row.Scan(
		&a.AgentID,
		&a.UserID,
		&a.OrganizationID,
		&u.Username,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	u.UserID = a.UserID
	u.Role = domain.NewAgentRole(a.OrganizationID, a.AgentID)
	a.User = u
	return &a, nil
}

// ListAgents 查询组织内 agent 列表
func (r *PostgresAgentsRepository) ListAgents(ctx context.Context, organizationID string) ([]*domain.Agent, error) {
	if !validID(organizationID) {
		return []*domain.Agent{}, nil
	}
	rows, err := r.db.QueryContext(ctx, agentSelect+`
		WHERE a.organization_id = $1
		ORDER BY u.username
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	agents := []*domain.Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agents: %w", err)
	}
	return agents, nil
}

// GetAgent 查询组织内单个 agent
func (r *PostgresAgentsRepository) GetAgent(ctx context.Context, organizationID, agentID string) (*domain.Agent, error) {
	if !validID(organizationID) || !validID(agentID) {
		return nil, notFound("agent")
	}
	a, err := scanAgent(r.db.QueryRowContext(ctx, agentSelect+`
		WHERE a.organization_id = $1 AND a.agent_id = $2
	`, organizationID, agentID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("agent")
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return a, nil
}

// DeleteAgent 删除 agent 用户（级联删除 agents 行，leads.agent_id 置空）
func (r *PostgresAgentsRepository) DeleteAgent(ctx context.Context, organizationID, agentID string) error {
	if !validID(organizationID) || !validID(agentID) {
		return notFound("agent")
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM users
		WHERE user_id = (
			SELECT user_id FROM agents WHERE organization_id = $1 AND agent_id = $2
		)
	`, organizationID, agentID)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("agent")
	}
	return nil
}
