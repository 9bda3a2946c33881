package httpapi

import (
	"context"
	"database/sql"
	"time"

	"leadcrm/internal/domain"
	"leadcrm/internal/service"

	"go.uber.org/zap"
)

// LeadItem 线索（前端格式）
type LeadItem struct {
	LeadID         string     `json:"lead_id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Age            int        `json:"age"`
	Email          string     `json:"email"`
	PhoneNumber    string     `json:"phone_number"`
	Description    string     `json:"description"`
	AgentID        *string    `json:"agent_id"`
	CategoryID     *string    `json:"category_id"`
	ProfilePicture *string    `json:"profile_picture"`
	DateAdded      time.Time  `json:"date_added"`
	ConvertedDate  *time.Time `json:"converted_date"`
}

// FollowUpItem 跟进记录（前端格式）
type FollowUpItem struct {
	FollowUpID string    `json:"follow_up_id"`
	LeadID     string    `json:"lead_id"`
	DateAdded  time.Time `json:"date_added"`
	Notes      *string   `json:"notes"`
	File       *string   `json:"file"`
}

// AgentItem agent（前端格式）
type AgentItem struct {
	AgentID        string `json:"agent_id"`
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
}

// CategoryView 分类
type CategoryView struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

func strPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func toLeadItem(l *domain.Lead) LeadItem {
	item := LeadItem{
		LeadID:         l.LeadID,
		FirstName:      l.FirstName,
		LastName:       l.LastName,
		Age:            l.Age,
		Email:          l.Email,
		PhoneNumber:    l.PhoneNumber,
		Description:    l.Description,
		AgentID:        strPtr(l.AgentID),
		CategoryID:     strPtr(l.CategoryID),
		ProfilePicture: strPtr(l.ProfilePicture),
		DateAdded:      l.DateAdded,
	}
	if l.ConvertedDate.Valid {
		t := l.ConvertedDate.Time
		item.ConvertedDate = &t
	}
	return item
}

func toLeadItems(leads []*domain.Lead) []LeadItem {
	out := make([]LeadItem, 0, len(leads))
	for _, l := range leads {
		out = append(out, toLeadItem(l))
	}
	return out
}

func toFollowUpItem(f *domain.FollowUp) FollowUpItem {
	return FollowUpItem{
		FollowUpID: f.FollowUpID,
		LeadID:     f.LeadID,
		DateAdded:  f.DateAdded,
		Notes:      strPtr(f.Notes),
		File:       strPtr(f.File),
	}
}

func toAgentItem(a *domain.Agent) AgentItem {
	item := AgentItem{
		AgentID:        a.AgentID,
		UserID:         a.UserID,
		OrganizationID: a.OrganizationID,
	}
	if a.User != nil {
		item.Username = a.User.Username
		item.Email = a.User.Email
		item.FirstName = a.User.FirstName
		item.LastName = a.User.LastName
	}
	return item
}

func toCategoryView(c *domain.Category) CategoryView {
	return CategoryView{CategoryID: c.CategoryID, Name: c.Name}
}

// flash queues a one-shot success message for the caller's session. Failures only log.
func flash(ctx context.Context, m *service.Messages, logger *zap.Logger, message string) {
	if m == nil {
		return
	}
	if err := m.Add(ctx, sessionFrom(ctx), message); err != nil {
		logger.Warn("Failed to queue message", zap.String("message", message), zap.Error(err))
	}
}
