package repository

import (
	"sync"
	"time"

	"leadcrm/internal/domain"
)

// MemoryStore backs the Memory*Repo types when DB is disabled (dev / unit tests).
// All repos built from one store share state so cross-entity reads (stats, cascades) work.
// Values are stored by copy; callers never hold pointers into the maps.
type MemoryStore struct {
	mu sync.RWMutex

	users      map[string]domain.User // userID -> user (Role not stored)
	orgs       map[string]domain.Organization
	agents     map[string]domain.Agent // agentID -> agent (User not stored)
	categories map[string]domain.Category
	leads      map[string]memLead
	followUps  map[string]domain.FollowUp

	leadSeq int64
	now     func() time.Time
}

type memLead struct {
	seq  int64
	lead domain.Lead
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      map[string]domain.User{},
		orgs:       map[string]domain.Organization{},
		agents:     map[string]domain.Agent{},
		categories: map[string]domain.Category{},
		leads:      map[string]memLead{},
		followUps:  map[string]domain.FollowUp{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// roleOf resolves the tagged role of a stored user. Caller holds the lock.
func (s *MemoryStore) roleOf(u domain.User) domain.Role {
	if u.RoleKind == domain.RoleAgent {
		for _, a := range s.agents {
			if a.UserID == u.UserID {
				return domain.NewAgentRole(a.OrganizationID, a.AgentID)
			}
		}
		return domain.Role{}
	}
	for _, o := range s.orgs {
		if o.OwnerUserID == u.UserID {
			return domain.NewOrganizerRole(o.OrganizationID)
		}
	}
	return domain.Role{}
}

func (s *MemoryStore) userCopy(u domain.User) *domain.User {
	out := u
	out.Role = s.roleOf(u)
	return &out
}

// deleteUser cascades like the FKs: own org (and its data), agent row, lead assignment.
// Caller holds the write lock.
func (s *MemoryStore) deleteUser(userID string) {
	delete(s.users, userID)
	for id, a := range s.agents {
		if a.UserID != userID {
			continue
		}
		delete(s.agents, id)
		for lid, ml := range s.leads {
			if ml.lead.AgentID.Valid && ml.lead.AgentID.String == id {
				ml.lead.AgentID.Valid = false
				ml.lead.AgentID.String = ""
				s.leads[lid] = ml
			}
		}
	}
	for id, o := range s.orgs {
		if o.OwnerUserID == userID {
			s.deleteOrg(id)
		}
	}
}

func (s *MemoryStore) deleteOrg(orgID string) {
	delete(s.orgs, orgID)
	for id, c := range s.categories {
		if c.OrganizationID == orgID {
			delete(s.categories, id)
		}
	}
	for id, ml := range s.leads {
		if ml.lead.OrganizationID == orgID {
			s.deleteLead(id)
		}
	}
	for id, a := range s.agents {
		if a.OrganizationID == orgID {
			delete(s.agents, id)
		}
	}
}

func (s *MemoryStore) deleteLead(leadID string) {
	delete(s.leads, leadID)
	for id, f := range s.followUps {
		if f.LeadID == leadID {
			delete(s.followUps, id)
		}
	}
}
