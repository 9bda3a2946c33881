package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"leadcrm/internal/domain"

	"github.com/google/uuid"
)

// MemoryLeadsRepo 内存版线索仓库
type MemoryLeadsRepo struct {
	s *MemoryStore
}

func NewMemoryLeadsRepo(s *MemoryStore) *MemoryLeadsRepo { return &MemoryLeadsRepo{s: s} }

var _ LeadsRepository = (*MemoryLeadsRepo)(nil)

func inScope(scope LeadScope, l domain.Lead) bool {
	if scope.OrganizationID == "" || l.OrganizationID != scope.OrganizationID {
		return false
	}
	if scope.AgentID != "" && (!l.AgentID.Valid || l.AgentID.String != scope.AgentID) {
		return false
	}
	return true
}

func (r *MemoryLeadsRepo) insert(lead *domain.Lead) error {
	if _, ok := r.s.orgs[lead.OrganizationID]; !ok {
		return fmt.Errorf("organization %s does not exist", lead.OrganizationID)
	}
	if lead.LeadID == "" {
		lead.LeadID = uuid.NewString()
	}
	if lead.DateAdded.IsZero() {
		lead.DateAdded = r.s.now()
	}
	r.s.leadSeq++
	r.s.leads[lead.LeadID] = memLead{seq: r.s.leadSeq, lead: *lead}
	return nil
}

func (r *MemoryLeadsRepo) CreateLead(_ context.Context, lead *domain.Lead) (*domain.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.insert(lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return lead, nil
}

func (r *MemoryLeadsRepo) CreateLeads(_ context.Context, leads []*domain.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// validate everything first so a failure leaves nothing behind
	for i, lead := range leads {
		if _, ok := r.s.orgs[lead.OrganizationID]; !ok {
			return fmt.Errorf("failed to create lead at row %d: organization %s does not exist", i+1, lead.OrganizationID)
		}
	}
	for i, lead := range leads {
		if err := r.insert(lead); err != nil {
			return fmt.Errorf("failed to create lead at row %d: %w", i+1, err)
		}
	}
	return nil
}

func (r *MemoryLeadsRepo) GetLead(_ context.Context, scope LeadScope, leadID string) (*domain.Lead, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ml, ok := r.s.leads[leadID]
	if !ok || !inScope(scope, ml.lead) {
		return nil, notFound("lead")
	}
	l := ml.lead
	return &l, nil
}

func (r *MemoryLeadsRepo) ListLeads(_ context.Context, filter LeadFilter) ([]*domain.Lead, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]memLead, 0)
	for _, ml := range r.s.leads {
		l := ml.lead
		if !inScope(filter.Scope, l) {
			continue
		}
		if filter.Assigned != nil && l.AgentID.Valid != *filter.Assigned {
			continue
		}
		if filter.Uncategorized && l.CategoryID.Valid {
			continue
		}
		if !filter.Uncategorized && filter.CategoryID != "" && l.CategoryID.String != filter.CategoryID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(l.FirstName), search) &&
			!strings.Contains(strings.ToLower(l.LastName), search) &&
			!strings.Contains(strings.ToLower(l.Email), search) {
			continue
		}
		matched = append(matched, ml)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]*domain.Lead, 0, len(matched))
	for _, ml := range matched {
		l := ml.lead
		out = append(out, &l)
	}
	return out, nil
}

func (r *MemoryLeadsRepo) UpdateLead(_ context.Context, scope LeadScope, leadID string, mutate LeadMutator) (*domain.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ml, ok := r.s.leads[leadID]
	if !ok || !inScope(scope, ml.lead) {
		return nil, notFound("lead")
	}

	working := ml.lead
	if err := mutate(&working); err != nil {
		return nil, err
	}
	// immutable columns
	working.LeadID = ml.lead.LeadID
	working.OrganizationID = ml.lead.OrganizationID
	working.DateAdded = ml.lead.DateAdded

	ml.lead = working
	r.s.leads[leadID] = ml
	out := working
	return &out, nil
}

func (r *MemoryLeadsRepo) DeleteLead(_ context.Context, scope LeadScope, leadID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ml, ok := r.s.leads[leadID]
	if !ok || !inScope(scope, ml.lead) {
		return notFound("lead")
	}
	r.s.deleteLead(leadID)
	return nil
}

func (r *MemoryLeadsRepo) CountByCategory(_ context.Context, scope LeadScope) (map[string]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[string]int{}
	for _, ml := range r.s.leads {
		if !inScope(scope, ml.lead) {
			continue
		}
		key := ""
		if ml.lead.CategoryID.Valid {
			key = ml.lead.CategoryID.String
		}
		counts[key]++
	}
	return counts, nil
}

func (r *MemoryLeadsRepo) Stats(_ context.Context, scope LeadScope, since time.Time) (*LeadStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stats := &LeadStats{}
	for _, ml := range r.s.leads {
		l := ml.lead
		if !inScope(scope, l) {
			continue
		}
		stats.TotalLeads++
		if l.DateAdded.Before(since) {
			continue
		}
		stats.RecentLeads++
		if l.CategoryID.Valid {
			c, ok := r.s.categories[l.CategoryID.String]
			if ok && c.OrganizationID == l.OrganizationID && c.IsConverted() {
				stats.RecentConverted++
			}
		}
	}
	return stats, nil
}
