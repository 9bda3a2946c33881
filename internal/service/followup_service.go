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

	"leadcrm/internal/domain"
	"leadcrm/internal/filestore"
	"leadcrm/internal/repository"

	"go.uber.org/zap"
)

// FollowUpService 跟进记录服务
// 每次修改都重新加载所属线索并按调用者的 LeadScope 校验
type FollowUpService struct {
	followUps repository.FollowUpsRepository
	leads     repository.LeadsRepository
	files     filestore.Store
	logger    *zap.Logger
}

// NewFollowUpService 创建跟进服务
func NewFollowUpService(followUps repository.FollowUpsRepository, leads repository.LeadsRepository, files filestore.Store, logger *zap.Logger) *FollowUpService {
	return &FollowUpService{followUps: followUps, leads: leads, files: files, logger: logger}
}

// Attachment 上传文件
type Attachment struct {
	Filename string
	Content  io.Reader
}

// FollowUpRequest notes 与 file 都可选
type FollowUpRequest struct {
	Notes string
	File  *Attachment

	// ClearFile drops the current attachment on update.
	ClearFile bool
}

// lead loads the lead through the actor's scope.
func (s *FollowUpService) lead(ctx context.Context, actor *Actor, leadID string) (*domain.Lead, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.leads.GetLead(ctx, actor.LeadScope(), leadID)
}

// owned loads a follow-up and re-derives its lead under the actor's scope.
func (s *FollowUpService) owned(ctx context.Context, actor *Actor, followUpID string) (*domain.FollowUp, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	f, err := s.followUps.GetFollowUp(ctx, followUpID)
	if err != nil {
		return nil, err
	}
	if _, err := s.leads.GetLead(ctx, actor.LeadScope(), f.LeadID); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FollowUpService) store(ctx context.Context, leadID string, a *Attachment) (sql.NullString, error) {
	if a == nil || strings.TrimSpace(a.Filename) == "" {
		return sql.NullString{}, nil
	}
	key, err := domain.FollowUpFilePath(leadID, a.Filename)
	if err != nil {
		return sql.NullString{}, err
	}
	handle, err := s.files.Save(ctx, key, a.Content)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to store follow-up file: %w", err)
	}
	return sql.NullString{String: handle, Valid: true}, nil
}

// Create 为线索追加跟进记录
func (s *FollowUpService) Create(ctx context.Context, actor *Actor, leadID string, req FollowUpRequest) (*domain.FollowUp, error) {
	lead, err := s.lead(ctx, actor, leadID)
	if err != nil {
		return nil, err
	}
	file, err := s.store(ctx, lead.LeadID, req.File)
	if err != nil {
		return nil, err
	}
	notes := strings.TrimSpace(req.Notes)
	f, err := s.followUps.CreateFollowUp(ctx, &domain.FollowUp{
		LeadID: lead.LeadID,
		Notes:  sql.NullString{String: notes, Valid: notes != ""},
		File:   file,
	})
	if err != nil {
		if file.Valid {
			_ = s.files.Delete(ctx, file.String)
		}
		return nil, fmt.Errorf("failed to create follow-up: %w", err)
	}
	s.logger.Info("Follow-up created", zap.String("follow_up_id", f.FollowUpID), zap.String("lead_id", lead.LeadID))
	return f, nil
}

// List 线索的跟进记录
func (s *FollowUpService) List(ctx context.Context, actor *Actor, leadID string) ([]*domain.FollowUp, error) {
	lead, err := s.lead(ctx, actor, leadID)
	if err != nil {
		return nil, err
	}
	return s.followUps.ListFollowUps(ctx, lead.LeadID)
}

// Get 跟进详情
func (s *FollowUpService) Get(ctx context.Context, actor *Actor, followUpID string) (*domain.FollowUp, error) {
	return s.owned(ctx, actor, followUpID)
}

// Update 修改 notes / file
func (s *FollowUpService) Update(ctx context.Context, actor *Actor, followUpID string, req FollowUpRequest) (*domain.FollowUp, error) {
	f, err := s.owned(ctx, actor, followUpID)
	if err != nil {
		return nil, err
	}
	previous := f.File

	notes := strings.TrimSpace(req.Notes)
	f.Notes = sql.NullString{String: notes, Valid: notes != ""}
	if req.ClearFile {
		f.File = sql.NullString{}
	}
	if req.File != nil {
		file, err := s.store(ctx, f.LeadID, req.File)
		if err != nil {
			return nil, err
		}
		if file.Valid {
			f.File = file
		}
	}
	if err := s.followUps.UpdateFollowUp(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to update follow-up: %w", err)
	}
	if previous.Valid && previous != f.File {
		if err := s.files.Delete(ctx, previous.String); err != nil {
			s.logger.Warn("Failed to delete old follow-up file", zap.String("handle", previous.String), zap.Error(err))
		}
	}
	return f, nil
}

// Delete 删除跟进记录及其附件
func (s *FollowUpService) Delete(ctx context.Context, actor *Actor, followUpID string) (*domain.FollowUp, error) {
	f, err := s.owned(ctx, actor, followUpID)
	if err != nil {
		return nil, err
	}
	if err := s.followUps.DeleteFollowUp(ctx, followUpID); err != nil {
		return nil, err
	}
	if f.File.Valid {
		if err := s.files.Delete(ctx, f.File.String); err != nil {
			s.logger.Warn("Failed to delete follow-up file", zap.String("handle", f.File.String), zap.Error(err))
		}
	}
	return f, nil
}

// OpenFile 打开跟进附件（调用者须能访问所属线索）
// 返回的文件名为存储 key 的最后一段。
func (s *FollowUpService) OpenFile(ctx context.Context, actor *Actor, followUpID string) (io.ReadCloser, string, error) {
	f, err := s.owned(ctx, actor, followUpID)
	if err != nil {
		return nil, "", err
	}
	if !f.File.Valid {
		return nil, "", domain.ErrNotFound
	}
	rc, err := s.files.Open(ctx, f.File.String)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", domain.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open follow-up file: %w", err)
	}
	return rc, path.Base(f.File.String), nil
}
