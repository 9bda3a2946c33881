package repository

import (
	"context"
	"sort"

	"leadcrm/internal/domain"

	"github.com/google/uuid"
)

// MemoryFollowUpsRepo 内存版跟进记录仓库
type MemoryFollowUpsRepo struct {
	s *MemoryStore
}

func NewMemoryFollowUpsRepo(s *MemoryStore) *MemoryFollowUpsRepo {
	return &MemoryFollowUpsRepo{s: s}
}

var _ FollowUpsRepository = (*MemoryFollowUpsRepo)(nil)

func (r *MemoryFollowUpsRepo) CreateFollowUp(_ context.Context, f *domain.FollowUp) (*domain.FollowUp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.leads[f.LeadID]; !ok {
		return nil, notFound("lead")
	}
	if f.FollowUpID == "" {
		f.FollowUpID = uuid.NewString()
	}
	if f.DateAdded.IsZero() {
		f.DateAdded = r.s.now()
	}
	r.s.followUps[f.FollowUpID] = *f
	return f, nil
}

func (r *MemoryFollowUpsRepo) GetFollowUp(_ context.Context, followUpID string) (*domain.FollowUp, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	f, ok := r.s.followUps[followUpID]
	if !ok {
		return nil, notFound("follow-up")
	}
	return &f, nil
}

func (r *MemoryFollowUpsRepo) ListFollowUps(_ context.Context, leadID string) ([]*domain.FollowUp, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.FollowUp{}
	for _, f := range r.s.followUps {
		if f.LeadID == leadID {
			ff := f
			out = append(out, &ff)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DateAdded.Equal(out[j].DateAdded) {
			return out[i].FollowUpID < out[j].FollowUpID
		}
		return out[i].DateAdded.Before(out[j].DateAdded)
	})
	return out, nil
}

func (r *MemoryFollowUpsRepo) UpdateFollowUp(_ context.Context, f *domain.FollowUp) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.followUps[f.FollowUpID]
	if !ok {
		return notFound("follow-up")
	}
	cur.Notes = f.Notes
	cur.File = f.File
	r.s.followUps[f.FollowUpID] = cur
	return nil
}

func (r *MemoryFollowUpsRepo) DeleteFollowUp(_ context.Context, followUpID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.followUps[followUpID]; !ok {
		return notFound("follow-up")
	}
	delete(r.s.followUps, followUpID)
	return nil
}
