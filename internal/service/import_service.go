package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadcrm/internal/domain"
	"leadcrm/internal/importer"
	"leadcrm/internal/repository"

	"go.uber.org/zap"
)

// ImportService 批量导入线索
type ImportService struct {
	users  repository.UsersRepository
	leads  repository.LeadsRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewImportService 创建导入服务
func NewImportService(users repository.UsersRepository, leads repository.LeadsRepository, logger *zap.Logger) *ImportService {
	return &ImportService{
		users:  users,
		leads:  leads,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Import creates one lead per row, in row order, in the organization of the organizer
// with the given email. The first invalid row aborts the whole batch.
func (s *ImportService) Import(ctx context.Context, organizerEmail string, rows []importer.Row) (int, error) {
	organizer, err := s.users.GetOrganizerByEmail(ctx, strings.TrimSpace(organizerEmail))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("organizer %q: %w", organizerEmail, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to load organizer: %w", err)
	}
	orgID := organizer.Role.OrganizationID()

	now := s.now()
	leads := make([]*domain.Lead, 0, len(rows))
	for _, row := range rows {
		fields := domain.LeadFields{
			FirstName:   row.FirstName,
			LastName:    row.LastName,
			Age:         row.Age,
			Email:       row.Email,
			PhoneNumber: row.PhoneNumber,
			Description: row.Description,
		}
		if err := fields.Validate().OrNil(); err != nil {
			return 0, &importer.RowError{Line: row.Line, Err: err}
		}
		lead := &domain.Lead{OrganizationID: orgID, DateAdded: now}
		fields.ApplyTo(lead)
		leads = append(leads, lead)
	}

	if err := s.leads.CreateLeads(ctx, leads); err != nil {
		return 0, fmt.Errorf("failed to import leads: %w", err)
	}
	s.logger.Info("Leads imported",
		zap.String("organization_id", orgID),
		zap.Int("count", len(leads)),
	)
	return len(leads), nil
}
