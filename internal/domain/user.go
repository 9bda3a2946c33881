package domain

import (
	"strings"
	"time"
)

// RoleKind 角色类型
type RoleKind string

const (
	RoleOrganizer RoleKind = "organizer"
	RoleAgent     RoleKind = "agent"
)

// Role is either Organizer{organization} or Agent{organization, agent}.
// Fields are unexported so the only way to build one is through the constructors.
type Role struct {
	kind           RoleKind
	organizationID string
	agentID        string
}

// NewOrganizerRole 组织者角色
func NewOrganizerRole(organizationID string) Role {
	return Role{kind: RoleOrganizer, organizationID: organizationID}
}

// NewAgentRole 代理角色（携带所属组织与 agent 记录ID）
func NewAgentRole(organizationID, agentID string) Role {
	return Role{kind: RoleAgent, organizationID: organizationID, agentID: agentID}
}

func (r Role) Kind() RoleKind         { return r.kind }
func (r Role) OrganizationID() string { return r.organizationID }

// AgentID is empty for organizers.
func (r Role) AgentID() string { return r.agentID }

func (r Role) IsOrganizer() bool { return r.kind == RoleOrganizer }
func (r Role) IsAgent() bool     { return r.kind == RoleAgent }
func (r Role) IsZero() bool      { return r.kind == "" }

// User 用户领域模型（对应 users 表，role 由 organizations/agents 推导）
type User struct {
	UserID       string    `db:"user_id"`
	Username     string    `db:"username"` // UNIQUE
	Email        string    `db:"email"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	PasswordHash []byte    `db:"password_hash"` // nullable: invited agents have no password until set
	RoleKind     RoleKind  `db:"role"`
	CreatedAt    time.Time `db:"created_at"`

	Role Role `db:"-"`
}

// FullName "first last"
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type userFields struct {
	Username  string `json:"username" validate:"required,max=150,username"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

// ValidateUserFields checks the fields shared by signup and agent invite.
func ValidateUserFields(username, email, firstName, lastName string) *ValidationError {
	return checkStruct(&userFields{
		Username:  strings.TrimSpace(username),
		Email:     strings.TrimSpace(email),
		FirstName: firstName,
		LastName:  lastName,
	})
}
