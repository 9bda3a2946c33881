package service

import (
	"context"
	"fmt"
	"time"

	"leadcrm/internal/repository"

	"go.uber.org/zap"
)

// DefaultDashboardDays 默认统计窗口
const DefaultDashboardDays = 30

// DashboardService 仪表盘统计（每次请求实时计算，不缓存）
type DashboardService struct {
	leads  repository.LeadsRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(leads repository.LeadsRepository, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		leads:  leads,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// DashboardResponse 统计结果
type DashboardResponse struct {
	repository.LeadStats
	Days  int       `json:"days"`
	Since time.Time `json:"since"`
}

// Dashboard counts the actor's visible leads: total, added in the last days,
// and those of them currently in Converted. days <= 0 means 30.
func (s *DashboardService) Dashboard(ctx context.Context, actor *Actor, days int) (*DashboardResponse, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultDashboardDays
	}
	since := repository.StatsWindowStart(s.now(), days)
	stats, err := s.leads.Stats(ctx, actor.LeadScope(), since)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard: %w", err)
	}
	return &DashboardResponse{LeadStats: *stats, Days: days, Since: since}, nil
}
