package service

import (
	"context"
	"fmt"
	"strings"

	"leadcrm/internal/domain"
	"leadcrm/internal/notify"
	"leadcrm/internal/repository"

	"go.uber.org/zap"
)

// AgentService agent 管理（仅 organizer）
type AgentService struct {
	users     repository.UsersRepository
	agents    repository.AgentsRepository
	passwords *PasswordHasher
	notifier  notify.Notifier
	logger    *zap.Logger
}

// NewAgentService 创建 agent 服务
func NewAgentService(users repository.UsersRepository, agents repository.AgentsRepository, passwords *PasswordHasher, notifier notify.Notifier, logger *zap.Logger) *AgentService {
	return &AgentService{users: users, agents: agents, passwords: passwords, notifier: notifier, logger: logger}
}

// InviteAgentRequest 邀请 agent
type InviteAgentRequest struct {
	Username  string
	Email     string
	FirstName string
	LastName  string

	// Password 可选：初始密码；为空时 agent 在设置密码前无法登录
	Password string
}

// AgentProfileRequest 更新 agent 资料
type AgentProfileRequest struct {
	Email     string
	FirstName string
	LastName  string
}

// Invite creates the agent user, links it to the organizer's organization and sends
// exactly one invitation to the agent's email.
func (s *AgentService) Invite(ctx context.Context, actor *Actor, req InviteAgentRequest) (*domain.Agent, error) {
	if err := requireOrganizer(actor); err != nil {
		return nil, err
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	v := domain.ValidateUserFields(req.Username, req.Email, req.FirstName, req.LastName)
	if req.Password != "" {
		if msg := s.passwords.Check(req.Password); msg != "" {
			v.Add("password", msg)
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	}
	if req.Password != "" {
		hash, err := s.passwords.Hash(req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	_, agent, err := s.users.CreateAgentUser(ctx, user, actor.OrganizationID())
	if err != nil {
		if isConflict(err) {
			return nil, domain.NewValidationError("username", "A user with that username already exists.")
		}
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	s.logger.Info("Agent invited",
		zap.String("agent_id", agent.AgentID),
		zap.String("organization_id", agent.OrganizationID),
		zap.String("invited_by", actor.UserID),
	)

	if s.notifier != nil {
		if err := s.notifier.Send(ctx, user.Email, notify.AgentInvitedSubject, notify.AgentInvitedBody); err != nil {
			s.logger.Warn("Failed to send agent invitation", zap.String("to", user.Email), zap.Error(err))
		}
	}
	return agent, nil
}

// List 组织内 agent 列表
func (s *AgentService) List(ctx context.Context, actor *Actor) ([]*domain.Agent, error) {
	if err := requireOrganizer(actor); err != nil {
		return nil, err
	}
	agents, err := s.agents.ListAgents(ctx, actor.OrganizationID())
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return agents, nil
}

// Get agent 详情
func (s *AgentService) Get(ctx context.Context, actor *Actor, agentID string) (*domain.Agent, error) {
	if err := requireOrganizer(actor); err != nil {
		return nil, err
	}
	a, err := s.agents.GetAgent(ctx, actor.OrganizationID(), agentID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Update 修改 agent 的 email / 姓名（用户名不可改）
func (s *AgentService) Update(ctx context.Context, actor *Actor, agentID string, req AgentProfileRequest) (*domain.Agent, error) {
	a, err := s.Get(ctx, actor, agentID)
	if err != nil {
		return nil, err
	}
	if a.User == nil {
		return nil, domain.ErrNotFound
	}
	v := domain.ValidateUserFields(a.User.Username, req.Email, req.FirstName, req.LastName)
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	a.User.Email = strings.TrimSpace(req.Email)
	a.User.FirstName = strings.TrimSpace(req.FirstName)
	a.User.LastName = strings.TrimSpace(req.LastName)
	if err := s.users.UpdateUserProfile(ctx, a.User); err != nil {
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}
	return a, nil
}

// Delete 删除 agent；其线索变为未分配
func (s *AgentService) Delete(ctx context.Context, actor *Actor, agentID string) (*domain.Agent, error) {
	a, err := s.Get(ctx, actor, agentID)
	if err != nil {
		return nil, err
	}
	if err := s.agents.DeleteAgent(ctx, actor.OrganizationID(), agentID); err != nil {
		return nil, err
	}
	s.logger.Info("Agent deleted", zap.String("agent_id", agentID), zap.String("deleted_by", actor.UserID))
	return a, nil
}
