package service

import (
	"context"
	"fmt"
	"strings"

	"leadcrm/internal/domain"
	"leadcrm/internal/repository"

	"go.uber.org/zap"
)

// CategoryService 分类（管道阶段）服务，所有操作仅 organizer
type CategoryService struct {
	categories repository.CategoriesRepository
	leads      repository.LeadsRepository
	logger     *zap.Logger
}

// NewCategoryService 创建分类服务
func NewCategoryService(categories repository.CategoriesRepository, leads repository.LeadsRepository, logger *zap.Logger) *CategoryService {
	return &CategoryService{categories: categories, leads: leads, logger: logger}
}

// CategoryItem 分类 + 线索数
type CategoryItem struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	LeadCount  int    `json:"lead_count"`
}

// ListCategoriesResponse 分类列表
type ListCategoriesResponse struct {
	Items               []CategoryItem `json:"items"`
	UnassignedLeadCount int            `json:"unassigned_lead_count"`
}

// CategoryDetail 分类详情（含线索）
type CategoryDetail struct {
	Category *domain.Category `json:"category"`
	Leads    []*domain.Lead   `json:"leads"`
}

// List 分类列表，附带每个分类的线索数与本组织未分类线索数
func (s *CategoryService) List(ctx context.Context, actor *Actor) (*ListCategoriesResponse, error) {
	if err := requireOrganizer(actor); err != nil {
		return nil, err
	}
	orgID := actor.OrganizationID()

	categories, err := s.categories.ListCategories(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	counts, err := s.leads.CountByCategory(ctx, actor.LeadScope())
	if err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}

	items := make([]CategoryItem, 0, len(categories))
	for _, c := range categories {
		items = append(items, CategoryItem{
			CategoryID: c.CategoryID,
			Name:       c.Name,
			LeadCount:  counts[c.CategoryID],
		})
	}
	return &ListCategoriesResponse{Items: items, UnassignedLeadCount: counts[""]}, nil
}

// Get 分类详情
func (s *CategoryService) Get(ctx context.Context, actor *Actor, categoryID string) (*CategoryDetail, error) {
	if err := requireOrganizer(actor); err != nil {
		return nil, err
	}
	c, err := s.categories.GetCategory(ctx, actor.OrganizationID(), categoryID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, c); err != nil {
		return nil, err
	}
	leads, err := s.leads.ListLeads(ctx, repository.LeadFilter{Scope: actor.LeadScope(), CategoryID: c.CategoryID})
	if err != nil {
		return nil, fmt.Errorf("failed to list category leads: %w", err)
	}
	return &CategoryDetail{Category: c, Leads: leads}, nil
}

// Create 创建分类；重名返回 ValidationError{name}
func (s *CategoryService) Create(ctx context.Context, actor *Actor, name string) (*domain.Category, error) {
	if err := requireOrganizer(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := domain.ValidateCategoryName(name).OrNil(); err != nil {
		return nil, err
	}
	c, err := s.categories.CreateCategory(ctx, &domain.Category{
		OrganizationID: actor.OrganizationID(),
		Name:           name,
	})
	if err != nil {
		return nil, duplicateName(err)
	}
	s.logger.Info("Category created", zap.String("category_id", c.CategoryID), zap.String("name", c.Name))
	return c, nil
}

// Update 重命名分类
func (s *CategoryService) Update(ctx context.Context, actor *Actor, categoryID, name string) (*domain.Category, error) {
	if err := requireOrganizer(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := domain.ValidateCategoryName(name).OrNil(); err != nil {
		return nil, err
	}
	c, err := s.categories.GetCategory(ctx, actor.OrganizationID(), categoryID)
	if err != nil {
		return nil, err
	}
	c.Name = name
	if err := s.categories.UpdateCategory(ctx, c); err != nil {
		return nil, duplicateName(err)
	}
	return c, nil
}

// Delete 删除分类，其线索变为未分类
func (s *CategoryService) Delete(ctx context.Context, actor *Actor, categoryID string) (*domain.Category, error) {
	if err := requireOrganizer(actor); err != nil {
		return nil, err
	}
	c, err := s.categories.GetCategory(ctx, actor.OrganizationID(), categoryID)
	if err != nil {
		return nil, err
	}
	if err := s.categories.DeleteCategory(ctx, actor.OrganizationID(), categoryID); err != nil {
		return nil, err
	}
	s.logger.Info("Category deleted", zap.String("category_id", categoryID))
	return c, nil
}

func duplicateName(err error) error {
	if isConflict(err) {
		return domain.NewValidationError("name", "Category with this Name already exists.")
	}
	return err
}
