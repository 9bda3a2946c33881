package service

import (
	"leadcrm/internal/domain"
	"leadcrm/internal/repository"
)

// Actor 已认证的调用者（用户 + 角色）
type Actor struct {
	UserID   string
	Username string
	Email    string
	Role     domain.Role
}

// ActorFromUser builds the actor for a loaded user.
func ActorFromUser(u *domain.User) *Actor {
	return &Actor{
		UserID:   u.UserID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// OrganizationID of the actor's role.
func (a *Actor) OrganizationID() string {
	return a.Role.OrganizationID()
}

// LeadScope 由角色推导：organizer 看整个组织，agent 只看分配给自己的线索
func (a *Actor) LeadScope() repository.LeadScope {
	scope := repository.LeadScope{OrganizationID: a.Role.OrganizationID()}
	if a.Role.IsAgent() {
		scope.AgentID = a.Role.AgentID()
	}
	return scope
}

func requireActor(a *Actor) error {
	if a == nil || a.Role.IsZero() || a.Role.OrganizationID() == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

// requireOrganizer 非组织者返回 NotFound（不暴露资源存在与否）
func requireOrganizer(a *Actor) error {
	if err := requireActor(a); err != nil {
		return err
	}
	if !a.Role.IsOrganizer() {
		return domain.ErrNotFound
	}
	return nil
}

// Authorize checks a loaded entity against the actor. Deny is always ErrNotFound.
func Authorize(a *Actor, entity any) error {
	if err := requireActor(a); err != nil {
		return err
	}
	orgID := a.Role.OrganizationID()

	switch e := entity.(type) {
	case *domain.Lead:
		if e == nil || e.OrganizationID != orgID {
			return domain.ErrNotFound
		}
		if a.Role.IsAgent() && (!e.AgentID.Valid || e.AgentID.String != a.Role.AgentID()) {
			return domain.ErrNotFound
		}
		return nil
	case *domain.Category:
		if e == nil || e.OrganizationID != orgID || !a.Role.IsOrganizer() {
			return domain.ErrNotFound
		}
		return nil
	case *domain.Agent:
		if e == nil || e.OrganizationID != orgID || !a.Role.IsOrganizer() {
			return domain.ErrNotFound
		}
		return nil
	case *domain.Organization:
		if e == nil || e.OrganizationID != orgID || !a.Role.IsOrganizer() {
			return domain.ErrNotFound
		}
		return nil
	default:
		return domain.ErrNotFound
	}
}
