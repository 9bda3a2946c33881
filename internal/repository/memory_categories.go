package repository

import (
	"context"
	"fmt"
	"sort"

	"leadcrm/internal/domain"

	"github.com/google/uuid"
)

// MemoryCategoriesRepo 内存版分类仓库
type MemoryCategoriesRepo struct {
	s *MemoryStore
}

func NewMemoryCategoriesRepo(s *MemoryStore) *MemoryCategoriesRepo {
	return &MemoryCategoriesRepo{s: s}
}

var _ CategoriesRepository = (*MemoryCategoriesRepo)(nil)

func (r *MemoryCategoriesRepo) nameTaken(orgID, name, exceptID string) bool {
	for _, c := range r.s.categories {
		if c.OrganizationID == orgID && c.Name == name && c.CategoryID != exceptID {
			return true
		}
	}
	return false
}

func (r *MemoryCategoriesRepo) CreateCategory(_ context.Context, category *domain.Category) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orgs[category.OrganizationID]; !ok {
		return nil, fmt.Errorf("organization_id is required")
	}
	if r.nameTaken(category.OrganizationID, category.Name, "") {
		return nil, fmt.Errorf("category %q: %w", category.Name, domain.ErrConflict)
	}
	if category.CategoryID == "" {
		category.CategoryID = uuid.NewString()
	}
	r.s.categories[category.CategoryID] = *category
	return category, nil
}

func (r *MemoryCategoriesRepo) GetCategory(_ context.Context, organizationID, categoryID string) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[categoryID]
	if !ok || c.OrganizationID != organizationID {
		return nil, notFound("category")
	}
	return &c, nil
}

func (r *MemoryCategoriesRepo) GetCategoryByName(_ context.Context, organizationID, name string) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.categories {
		if c.OrganizationID == organizationID && c.Name == name {
			out := c
			return &out, nil
		}
	}
	return nil, notFound("category")
}

func (r *MemoryCategoriesRepo) ListCategories(_ context.Context, organizationID string) ([]*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.Category{}
	for _, c := range r.s.categories {
		if c.OrganizationID == organizationID {
			cc := c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryCategoriesRepo) UpdateCategory(_ context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.categories[category.CategoryID]
	if !ok || c.OrganizationID != category.OrganizationID {
		return notFound("category")
	}
	if r.nameTaken(c.OrganizationID, category.Name, c.CategoryID) {
		return fmt.Errorf("category %q: %w", category.Name, domain.ErrConflict)
	}
	c.Name = category.Name
	r.s.categories[c.CategoryID] = c
	return nil
}

func (r *MemoryCategoriesRepo) DeleteCategory(_ context.Context, organizationID, categoryID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.categories[categoryID]
	if !ok || c.OrganizationID != organizationID {
		return notFound("category")
	}
	delete(r.s.categories, categoryID)
	for id, ml := range r.s.leads {
		if ml.lead.CategoryID.Valid && ml.lead.CategoryID.String == categoryID {
			ml.lead.CategoryID.Valid = false
			ml.lead.CategoryID.String = ""
			r.s.leads[id] = ml
		}
	}
	return nil
}
