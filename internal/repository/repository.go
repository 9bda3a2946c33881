// Package repository holds the data access layer. Every query touching leads takes a
// LeadScope so tenant and agent filtering happens in the store, not in callers.
package repository

import (
	"time"
)

// LeadScope 数据可见范围
// OrganizationID 必填；AgentID 非空时只返回分配给该 agent 的线索（assigned_only）
type LeadScope struct {
	OrganizationID string
	AgentID        string
}

// Valid reports whether the scope names an organization.
func (s LeadScope) Valid() bool {
	return s.OrganizationID != ""
}

// LeadFilter 线索列表过滤器
type LeadFilter struct {
	Scope LeadScope

	// Assigned: nil 不过滤；true 仅已分配；false 仅未分配
	Assigned *bool
	// CategoryID 精确匹配；Uncategorized 为 true 时只返回无分类线索
	CategoryID    string
	Uncategorized bool
	// Search 对 first_name / last_name / email 模糊匹配
	Search string
}

// LeadStats dashboard aggregates.
type LeadStats struct {
	TotalLeads      int `json:"total_lead_count"`
	RecentLeads     int `json:"total_in_past_days"`
	RecentConverted int `json:"converted_in_past_days"`
}

// BoolPtr helper for LeadFilter.Assigned
func BoolPtr(b bool) *bool { return &b }

// StatsWindowStart returns now - days (days <= 0 means 30).
func StatsWindowStart(now time.Time, days int) time.Time {
	if days <= 0 {
		days = 30
	}
	return now.AddDate(0, 0, -days)
}
