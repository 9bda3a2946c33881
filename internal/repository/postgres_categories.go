package repository

import (
	"context"
	"database/sql"
	"fmt"

	"leadcrm/internal/domain"

	"github.com/google/uuid"
)

// PostgresCategoriesRepository 分类Repository实现
type PostgresCategoriesRepository struct {
	db *sql.DB
}

// NewPostgresCategoriesRepository 创建分类Repository
func NewPostgresCategoriesRepository(db *sql.DB) *PostgresCategoriesRepository {
	return &PostgresCategoriesRepository{db: db}
}

var _ CategoriesRepository = (*PostgresCategoriesRepository)(nil)

// CreateCategory 创建分类
func (r *PostgresCategoriesRepository) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	if !validID(category.OrganizationID) {
		return nil, fmt.Errorf("organization_id is required")
	}
	if category.CategoryID == "" {
		category.CategoryID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (category_id, organization_id, name)
		VALUES ($1, $2, $3)
	`, category.CategoryID, category.OrganizationID, category.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("category %q: %w", category.Name, domain.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (r *PostgresCategoriesRepository) getOne(ctx context.Context, where string, args ...any) (*domain.Category, error) {
	var c domain.Category
	err := r.db.QueryRowContext(ctx, `
		SELECT category_id::text, organization_id::text, name
		FROM categories
		WHERE `+where, args...).Scan(&c.CategoryID, &c.OrganizationID, &c.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("category")
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// GetCategory 根据ID获取组织内分类
func (r *PostgresCategoriesRepository) GetCategory(ctx context.Context, organizationID, categoryID string) (*domain.Category, error) {
	if !validID(organizationID) || !validID(categoryID) {
		return nil, notFound("category")
	}
	return r.getOne(ctx, `organization_id = $1 AND category_id = $2`, organizationID, categoryID)
}

// GetCategoryByName 根据名称获取组织内分类
func (r *PostgresCategoriesRepository) GetCategoryByName(ctx context.Context, organizationID, name string) (*domain.Category, error) {
	if !validID(organizationID) || name == "" {
		return nil, notFound("category")
	}
	return r.getOne(ctx, `organization_id = $1 AND name = $2`, organizationID, name)
}

// ListCategories 查询组织内分类列表
func (r *PostgresCategoriesRepository) ListCategories(ctx context.Context, organizationID string) ([]*domain.Category, error) {
	if !validID(organizationID) {
		return []*domain.Category{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT category_id::text, organization_id::text, name
		FROM categories
		WHERE organization_id = $1
		ORDER BY name
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.CategoryID, &c.OrganizationID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory 更新分类名称
func (r *PostgresCategoriesRepository) UpdateCategory(ctx context.Context, category *domain.Category) error {
	if !validID(category.OrganizationID) || !validID(category.CategoryID) {
		return notFound("category")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = $3
		WHERE organization_id = $1 AND category_id = $2
	`, category.OrganizationID, category.CategoryID, category.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category %q: %w", category.Name, domain.ErrConflict)
		}
		return fmt.Errorf("failed to update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("category")
	}
	return nil
}

// DeleteCategory 删除分类（leads.category_id 由外键置空）
func (r *PostgresCategoriesRepository) DeleteCategory(ctx context.Context, organizationID, categoryID string) error {
	if !validID(organizationID) || !validID(categoryID) {
		return notFound("category")
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM categories WHERE organization_id = $1 AND category_id = $2
	`, organizationID, categoryID)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("category")
	}
	return nil
}
