package repository

import (
	"context"
	"fmt"
	"strings"

	"leadcrm/internal/domain"

	"github.com/google/uuid"
)

// MemoryUsersRepo 内存版用户/组织仓库
type MemoryUsersRepo struct {
	s *MemoryStore
}

func NewMemoryUsersRepo(s *MemoryStore) *MemoryUsersRepo { return &MemoryUsersRepo{s: s} }

var _ UsersRepository = (*MemoryUsersRepo)(nil)

func (r *MemoryUsersRepo) insertUserWithOrg(user *domain.User, role domain.RoleKind, orgName string) (string, error) {
	for _, u := range r.s.users {
		if u.Username == user.Username {
			return "", fmt.Errorf("username %q: %w", user.Username, domain.ErrConflict)
		}
	}
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.s.now()
	}
	user.RoleKind = role

	stored := *user
	stored.Role = domain.Role{}
	r.s.users[user.UserID] = stored

	orgID := uuid.NewString()
	r.s.orgs[orgID] = domain.Organization{
		OrganizationID: orgID,
		OwnerUserID:    user.UserID,
		Name:           orgName,
		CreatedAt:      user.CreatedAt,
	}
	return orgID, nil
}

func (r *MemoryUsersRepo) CreateOrganizer(_ context.Context, user *domain.User, orgName string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	orgID, err := r.insertUserWithOrg(user, domain.RoleOrganizer, orgName)
	if err != nil {
		return nil, err
	}
	user.Role = domain.NewOrganizerRole(orgID)
	return user, nil
}

func (r *MemoryUsersRepo) CreateAgentUser(_ context.Context, user *domain.User, organizationID string) (*domain.User, *domain.Agent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orgs[organizationID]; !ok {
		return nil, nil, notFound("organization")
	}
	if _, err := r.insertUserWithOrg(user, domain.RoleAgent, user.Username); err != nil {
		return nil, nil, err
	}

	agent := domain.Agent{
		AgentID:        uuid.NewString(),
		UserID:         user.UserID,
		OrganizationID: organizationID,
	}
	r.s.agents[agent.AgentID] = agent

	user.Role = domain.NewAgentRole(organizationID, agent.AgentID)
	agent.User = user
	return user, &agent, nil
}

func (r *MemoryUsersRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, notFound("user")
	}
	return r.s.userCopy(u), nil
}

func (r *MemoryUsersRepo) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return r.s.userCopy(u), nil
		}
	}
	return nil, notFound("user")
}

func (r *MemoryUsersRepo) GetOrganizerByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = strings.TrimSpace(email)
	var matches []domain.User
	for _, u := range r.s.users {
		if u.RoleKind == domain.RoleOrganizer && email != "" && strings.EqualFold(u.Email, email) {
			matches = append(matches, u)
		}
	}
	switch len(matches) {
	case 0:
		return nil, notFound("organizer")
	case 1:
		return r.s.userCopy(matches[0]), nil
	default:
		return nil, fmt.Errorf("organizer email %s: %w", email, domain.ErrAmbiguous)
	}
}

func (r *MemoryUsersRepo) GetOrganization(_ context.Context, organizationID string) (*domain.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orgs[organizationID]
	if !ok {
		return nil, notFound("organization")
	}
	return &o, nil
}

func (r *MemoryUsersRepo) UpdateUserProfile(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[user.UserID]
	if !ok {
		return notFound("user")
	}
	u.Email = user.Email
	u.FirstName = user.FirstName
	u.LastName = user.LastName
	r.s.users[user.UserID] = u
	return nil
}

func (r *MemoryUsersRepo) SetPassword(_ context.Context, userID string, hash []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return notFound("user")
	}
	u.PasswordHash = append([]byte(nil), hash...)
	r.s.users[userID] = u
	return nil
}
