package repository

import (
	"context"

	"leadcrm/internal/domain"
)

// CategoriesRepository 分类Repository接口（name 在组织内唯一，冲突返回 domain.ErrConflict）
type CategoriesRepository interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategory(ctx context.Context, organizationID, categoryID string) (*domain.Category, error)
	GetCategoryByName(ctx context.Context, organizationID, name string) (*domain.Category, error)
	ListCategories(ctx context.Context, organizationID string) ([]*domain.Category, error)
	UpdateCategory(ctx context.Context, category *domain.Category) error

	// DeleteCategory 删除分类；相关线索变为未分类
	DeleteCategory(ctx context.Context, organizationID, categoryID string) error
}
