package domain

import "time"

// Organization 租户（对应 organizations 表）
// 每个用户创建时自动生成且仅生成一个
type Organization struct {
	OrganizationID string    `db:"organization_id"`
	OwnerUserID    string    `db:"owner_user_id"` // UNIQUE
	Name           string    `db:"name"`
	CreatedAt      time.Time `db:"created_at"`
}
