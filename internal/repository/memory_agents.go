package repository

import (
	"context"
	"sort"

	"leadcrm/internal/domain"
)

// MemoryAgentsRepo 内存版 agent 仓库
type MemoryAgentsRepo struct {
	s *MemoryStore
}

func NewMemoryAgentsRepo(s *MemoryStore) *MemoryAgentsRepo { return &MemoryAgentsRepo{s: s} }

var _ AgentsRepository = (*MemoryAgentsRepo)(nil)

func (r *MemoryAgentsRepo) withUser(a domain.Agent) *domain.Agent {
	out := a
	if u, ok := r.s.users[a.UserID]; ok {
		out.User = r.s.userCopy(u)
	}
	return &out
}

func (r *MemoryAgentsRepo) ListAgents(_ context.Context, organizationID string) ([]*domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.Agent{}
	for _, a := range r.s.agents {
		if a.OrganizationID == organizationID {
			out = append(out, r.withUser(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].User.Username < out[j].User.Username
	})
	return out, nil
}

func (r *MemoryAgentsRepo) GetAgent(_ context.Context, organizationID, agentID string) (*domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.agents[agentID]
	if !ok || a.OrganizationID != organizationID {
		return nil, notFound("agent")
	}
	return r.withUser(a), nil
}

func (r *MemoryAgentsRepo) DeleteAgent(_ context.Context, organizationID, agentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.agents[agentID]
	if !ok || a.OrganizationID != organizationID {
		return notFound("agent")
	}
	r.s.deleteUser(a.UserID)
	return nil
}
