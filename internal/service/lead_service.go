package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"leadcrm/internal/domain"
	"leadcrm/internal/filestore"
	"leadcrm/internal/notify"
	"leadcrm/internal/repository"

	"go.uber.org/zap"
)

// LeadService 线索服务
type LeadService struct {
	leads      repository.LeadsRepository
	categories repository.CategoriesRepository
	agents     repository.AgentsRepository
	files      filestore.Store
	notifier   notify.Notifier
	notifyTo   string
	logger     *zap.Logger
	now        func() time.Time
}

// NewLeadService 创建线索服务
// notifyTo is the recipient of "lead created" mails.
func NewLeadService(
	leads repository.LeadsRepository,
	categories repository.CategoriesRepository,
	agents repository.AgentsRepository,
	files filestore.Store,
	notifier notify.Notifier,
	notifyTo string,
	logger *zap.Logger,
) *LeadService {
	return &LeadService{
		leads:      leads,
		categories: categories,
		agents:     agents,
		files:      files,
		notifier:   notifier,
		notifyTo:   notifyTo,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// LeadRequest 创建/更新线索请求（整表单替换）
type LeadRequest struct {
	domain.LeadFields
	AgentID    string // 空 = 未分配
	CategoryID string // 空 = 未分类
}

// ListLeadsRequest 列表过滤
type ListLeadsRequest struct {
	Search     string
	CategoryID string
}

// ListLeadsResponse 线索列表；Unassigned 只对 organizer 填充
type ListLeadsResponse struct {
	Leads      []*domain.Lead `json:"leads"`
	Unassigned []*domain.Lead `json:"unassigned_leads,omitempty"`
}

// validateLeadRefs is the single check that a lead's agent and category belong to
// the lead's organization. Every mutation path calls it before writing.
func (s *LeadService) validateLeadRefs(ctx context.Context, organizationID, agentID, categoryID string) error {
	v := &domain.ValidationError{}
	if agentID != "" {
		if _, err := s.agents.GetAgent(ctx, organizationID, agentID); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("failed to load agent: %w", err)
			}
			v.Add("agent", "Select a valid choice. That choice is not one of the available choices.")
		}
	}
	if categoryID != "" {
		if _, err := s.categories.GetCategory(ctx, organizationID, categoryID); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("failed to load category: %w", err)
			}
			v.Add("category", "Select a valid choice. That choice is not one of the available choices.")
		}
	}
	return v.OrNil()
}

// convertedCategoryID 查找组织的 Converted 分类；不存在时返回无效值（不会触发转化）
func (s *LeadService) convertedCategoryID(ctx context.Context, organizationID string) (sql.NullString, error) {
	c, err := s.categories.GetCategoryByName(ctx, organizationID, domain.ConvertedCategoryName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return sql.NullString{}, nil
		}
		return sql.NullString{}, fmt.Errorf("failed to load converted category: %w", err)
	}
	return sql.NullString{String: c.CategoryID, Valid: true}, nil
}

func nullID(id string) sql.NullString {
	id = strings.TrimSpace(id)
	return sql.NullString{String: id, Valid: id != ""}
}

// Create 创建线索（仅 organizer），成功后发送通知
func (s *LeadService) Create(ctx context.Context, actor *Actor, req LeadRequest) (*domain.Lead, error) {
	if err := requireOrganizer(actor); err != nil {
		return nil, err
	}
	orgID := actor.OrganizationID()
	req.AgentID = strings.TrimSpace(req.AgentID)
	req.CategoryID = strings.TrimSpace(req.CategoryID)

	if err := req.LeadFields.Validate().OrNil(); err != nil {
		return nil, err
	}
	if err := s.validateLeadRefs(ctx, orgID, req.AgentID, req.CategoryID); err != nil {
		return nil, err
	}
	converted, err := s.convertedCategoryID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	lead := &domain.Lead{
		OrganizationID: orgID,
		AgentID:        nullID(req.AgentID),
		DateAdded:      now,
	}
	req.LeadFields.ApplyTo(lead)
	lead.ApplyCategory(nullID(req.CategoryID), converted, now)

	created, err := s.leads.CreateLead(ctx, lead)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	s.logger.Info("Lead created",
		zap.String("lead_id", created.LeadID),
		zap.String("organization_id", orgID),
		zap.String("user_id", actor.UserID),
	)
	s.send(ctx, s.notifyTo, notify.LeadCreatedSubject, notify.LeadCreatedBody)
	return created, nil
}

// send 通知失败只记录日志，不影响主流程
func (s *LeadService) send(ctx context.Context, to, subject, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, to, subject, body); err != nil {
		s.logger.Warn("Failed to send notification",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

// List 返回调用者可见的线索；organizer 额外返回未分配线索
func (s *LeadService) List(ctx context.Context, actor *Actor, req ListLeadsRequest) (*ListLeadsResponse, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	filter := repository.LeadFilter{
		Scope:      actor.LeadScope(),
		Search:     strings.TrimSpace(req.Search),
		CategoryID: strings.TrimSpace(req.CategoryID),
	}
	leads, err := s.leads.ListLeads(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	resp := &ListLeadsResponse{Leads: leads}

	if actor.Role.IsOrganizer() {
		filter.Assigned = repository.BoolPtr(false)
		unassigned, err := s.leads.ListLeads(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list unassigned leads: %w", err)
		}
		resp.Unassigned = unassigned
	}
	return resp, nil
}

// Get 详情；范围外与不存在一样返回 NotFound
func (s *LeadService) Get(ctx context.Context, actor *Actor, leadID string) (*domain.Lead, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.leads.GetLead(ctx, actor.LeadScope(), leadID)
}

// Update 全字段更新（仅 organizer），含 agent / category，适用转化规则
func (s *LeadService) Update(ctx context.Context, actor *Actor, leadID string, req LeadRequest) (*domain.Lead, error) {
	if err := requireOrganizer(actor); err != nil {
		return nil, err
	}
	orgID := actor.OrganizationID()
	req.AgentID = strings.TrimSpace(req.AgentID)
	req.CategoryID = strings.TrimSpace(req.CategoryID)

	// 范围检查先于任何校验：范围外的线索一律 NotFound
	if _, err := s.leads.GetLead(ctx, actor.LeadScope(), leadID); err != nil {
		return nil, err
	}
	if err := req.LeadFields.Validate().OrNil(); err != nil {
		return nil, err
	}
	if err := s.validateLeadRefs(ctx, orgID, req.AgentID, req.CategoryID); err != nil {
		return nil, err
	}
	converted, err := s.convertedCategoryID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated, err := s.leads.UpdateLead(ctx, actor.LeadScope(), leadID, func(l *domain.Lead) error {
		req.LeadFields.ApplyTo(l)
		l.AgentID = nullID(req.AgentID)
		l.ApplyCategory(nullID(req.CategoryID), converted, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Lead updated", zap.String("lead_id", leadID), zap.String("user_id", actor.UserID))
	return updated, nil
}

// Delete 删除线索（仅 organizer）
func (s *LeadService) Delete(ctx context.Context, actor *Actor, leadID string) error {
	if err := requireOrganizer(actor); err != nil {
		return err
	}
	if err := s.leads.DeleteLead(ctx, actor.LeadScope(), leadID); err != nil {
		return err
	}
	s.logger.Info("Lead deleted", zap.String("lead_id", leadID), zap.String("user_id", actor.UserID))
	return nil
}

// AssignAgent 分配 agent；agent 必须属于同一组织，否则返回 ValidationError{agent}
func (s *LeadService) AssignAgent(ctx context.Context, actor *Actor, leadID, agentID string) (*domain.Lead, *domain.Agent, error) {
	if err := requireOrganizer(actor); err != nil {
		return nil, nil, err
	}
	orgID := actor.OrganizationID()
	agentID = strings.TrimSpace(agentID)
	if _, err := s.leads.GetLead(ctx, actor.LeadScope(), leadID); err != nil {
		return nil, nil, err
	}
	if agentID == "" {
		return nil, nil, domain.NewValidationError("agent", "This field is required.")
	}
	if err := s.validateLeadRefs(ctx, orgID, agentID, ""); err != nil {
		return nil, nil, err
	}
	agent, err := s.agents.GetAgent(ctx, orgID, agentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load agent: %w", err)
	}

	updated, err := s.leads.UpdateLead(ctx, actor.LeadScope(), leadID, func(l *domain.Lead) error {
		l.AgentID = nullID(agentID)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("Agent assigned",
		zap.String("lead_id", leadID),
		zap.String("agent_id", agentID),
	)
	return updated, agent, nil
}

// UpdateCategory 修改分类：organizer 或被分配的 agent
func (s *LeadService) UpdateCategory(ctx context.Context, actor *Actor, leadID, categoryID string) (*domain.Lead, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	orgID := actor.OrganizationID()
	categoryID = strings.TrimSpace(categoryID)

	// 先做范围检查，避免通过分类校验探测线索是否存在
	if _, err := s.leads.GetLead(ctx, actor.LeadScope(), leadID); err != nil {
		return nil, err
	}
	if err := s.validateLeadRefs(ctx, orgID, "", categoryID); err != nil {
		return nil, err
	}
	converted, err := s.convertedCategoryID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var stamped bool
	updated, err := s.leads.UpdateLead(ctx, actor.LeadScope(), leadID, func(l *domain.Lead) error {
		stamped = l.ApplyCategory(nullID(categoryID), converted, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Lead category updated",
		zap.String("lead_id", leadID),
		zap.String("category_id", categoryID),
		zap.Bool("converted", stamped),
	)
	return updated, nil
}

// SetProfilePicture stores the upload and points the lead at it (organizer only).
func (s *LeadService) SetProfilePicture(ctx context.Context, actor *Actor, leadID, filename string, r io.Reader) (*domain.Lead, error) {
	if err := requireOrganizer(actor); err != nil {
		return nil, err
	}
	if _, err := s.leads.GetLead(ctx, actor.LeadScope(), leadID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(filename) == "" {
		return nil, domain.NewValidationError("profile_picture", "This field is required.")
	}
	key, err := domain.ProfilePicturePath(leadID, filename)
	if err != nil {
		return nil, err
	}

	handle, err := s.files.Save(ctx, key, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store profile picture: %w", err)
	}
	var previous sql.NullString
	updated, err := s.leads.UpdateLead(ctx, actor.LeadScope(), leadID, func(l *domain.Lead) error {
		previous = l.ProfilePicture
		l.ProfilePicture = sql.NullString{String: handle, Valid: true}
		return nil
	})
	if err != nil {
		_ = s.files.Delete(ctx, handle)
		return nil, err
	}
	if previous.Valid && previous.String != handle {
		if err := s.files.Delete(ctx, previous.String); err != nil {
			s.logger.Warn("Failed to delete old profile picture", zap.String("handle", previous.String), zap.Error(err))
		}
	}
	return updated, nil
}

// NamesJSON first_name -> last_name for the caller's visible leads.
// Later leads with the same first name overwrite earlier ones.
func (s *LeadService) NamesJSON(ctx context.Context, actor *Actor) (map[string]string, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	leads, err := s.leads.ListLeads(ctx, repository.LeadFilter{Scope: actor.LeadScope()})
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	out := make(map[string]string, len(leads))
	for _, l := range leads {
		out[l.FirstName] = l.LastName
	}
	return out, nil
}

// LeadExportRow 导出行（附带 agent / category 名称）
type LeadExportRow struct {
	Lead          *domain.Lead
	AgentUsername string
	CategoryName  string
}

// ExportRows 导出组织内全部线索（仅 organizer）
func (s *LeadService) ExportRows(ctx context.Context, actor *Actor) ([]LeadExportRow, error) {
	if err := requireOrganizer(actor); err != nil {
		return nil, err
	}
	orgID := actor.OrganizationID()

	leads, err := s.leads.ListLeads(ctx, repository.LeadFilter{Scope: actor.LeadScope()})
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	agents, err := s.agents.ListAgents(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	categories, err := s.categories.ListCategories(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	agentNames := make(map[string]string, len(agents))
	for _, a := range agents {
		if a.User != nil {
			agentNames[a.AgentID] = a.User.Username
		}
	}
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.CategoryID] = c.Name
	}

	rows := make([]LeadExportRow, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, LeadExportRow{
			Lead:          l,
			AgentUsername: agentNames[l.AgentID.String],
			CategoryName:  categoryNames[l.CategoryID.String],
		})
	}
	return rows, nil
}

// OpenProfilePicture 打开线索头像；未上传时返回 NotFound
func (s *LeadService) OpenProfilePicture(ctx context.Context, actor *Actor, leadID string) (io.ReadCloser, string, error) {
	lead, err := s.Get(ctx, actor, leadID)
	if err != nil {
		return nil, "", err
	}
	if !lead.ProfilePicture.Valid {
		return nil, "", domain.ErrNotFound
	}
	rc, err := s.files.Open(ctx, lead.ProfilePicture.String)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", domain.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open profile picture: %w", err)
	}
	return rc, path.Base(lead.ProfilePicture.String), nil
}
