package repository

import (
	"context"

	"leadcrm/internal/domain"
)

// UsersRepository 用户/组织 Repository接口
// 约束：每创建一个用户，同一事务内创建且仅创建一个 Organization
type UsersRepository interface {
	// CreateOrganizer 创建组织者用户及其组织；user.Role 在返回值中填充
	CreateOrganizer(ctx context.Context, user *domain.User, orgName string) (*domain.User, error)

	// CreateAgentUser 创建 agent 用户（自有组织 + agents 行绑定到 organizationID）
	CreateAgentUser(ctx context.Context, user *domain.User, organizationID string) (*domain.User, *domain.Agent, error)

	// GetUser / GetUserByUsername 返回带 Role 的用户
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetOrganizerByEmail 按邮箱查找组织者（批量导入使用）
	GetOrganizerByEmail(ctx context.Context, email string) (*domain.User, error)

	GetOrganization(ctx context.Context, organizationID string) (*domain.Organization, error)

	// UpdateUserProfile 更新 email / first_name / last_name
	UpdateUserProfile(ctx context.Context, user *domain.User) error
	SetPassword(ctx context.Context, userID string, hash []byte) error
}
