package repository

import (
	"context"

	"leadcrm/internal/domain"
)

// FollowUpsRepository 跟进记录Repository接口
// 不做范围校验：调用方必须先通过所属 lead 的 LeadScope 检查
type FollowUpsRepository interface {
	CreateFollowUp(ctx context.Context, followUp *domain.FollowUp) (*domain.FollowUp, error)
	GetFollowUp(ctx context.Context, followUpID string) (*domain.FollowUp, error)
	ListFollowUps(ctx context.Context, leadID string) ([]*domain.FollowUp, error)

	// UpdateFollowUp 只更新 notes / file
	UpdateFollowUp(ctx context.Context, followUp *domain.FollowUp) error
	DeleteFollowUp(ctx context.Context, followUpID string) error
}
