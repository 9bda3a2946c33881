package repository

import (
	"context"
	"time"

	"leadcrm/internal/domain"
)

// LeadMutator edits a lead loaded inside the update transaction.
// Returning an error aborts the update.
type LeadMutator func(lead *domain.Lead) error

// LeadsRepository 线索Repository接口
// 所有读取/修改都带 LeadScope；范围外的记录与不存在的记录一样返回 domain.ErrNotFound
type LeadsRepository interface {
	CreateLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error)

	// CreateLeads inserts all leads in one transaction, in slice order.
	CreateLeads(ctx context.Context, leads []*domain.Lead) error

	GetLead(ctx context.Context, scope LeadScope, leadID string) (*domain.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]*domain.Lead, error)

	// UpdateLead 读取-修改-写入在同一事务内完成（SELECT ... FOR UPDATE）
	UpdateLead(ctx context.Context, scope LeadScope, leadID string, mutate LeadMutator) (*domain.Lead, error)
	DeleteLead(ctx context.Context, scope LeadScope, leadID string) error

	// CountByCategory returns lead counts keyed by category_id; "" is uncategorized.
	CountByCategory(ctx context.Context, scope LeadScope) (map[string]int, error)

	// Stats 仪表盘统计（不缓存）
	Stats(ctx context.Context, scope LeadScope, since time.Time) (*LeadStats, error)
}
