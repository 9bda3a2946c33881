package domain

// Agent 代理（对应 agents 表）：把一个 User 绑定到唯一的 Organization
type Agent struct {
	AgentID        string `db:"agent_id"`
	UserID         string `db:"user_id"` // UNIQUE
	OrganizationID string `db:"organization_id"`

	// 读取时联表填充
	User *User `db:"-"`
}
