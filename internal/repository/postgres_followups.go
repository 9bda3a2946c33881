package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"leadcrm/internal/domain"

	"github.com/google/uuid"
)

// PostgresFollowUpsRepository 跟进记录Repository实现
type PostgresFollowUpsRepository struct {
	db *sql.DB
}

// NewPostgresFollowUpsRepository 创建跟进记录Repository
func NewPostgresFollowUpsRepository(db *sql.DB) *PostgresFollowUpsRepository {
	return &PostgresFollowUpsRepository{db: db}
}

var _ FollowUpsRepository = (*PostgresFollowUpsRepository)(nil)

// CreateFollowUp 追加跟进记录
func (r *PostgresFollowUpsRepository) CreateFollowUp(ctx context.Context, f *domain.FollowUp) (*domain.FollowUp, error) {
	if !validID(f.LeadID) {
		return nil, notFound("lead")
	}
	if f.FollowUpID == "" {
		f.FollowUpID = uuid.NewString()
	}
	if f.DateAdded.IsZero() {
		f.DateAdded = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO follow_ups (follow_up_id, lead_id, date_added, notes, file)
		VALUES ($1, $2, $3, $4, $5)
	`, f.FollowUpID, f.LeadID, f.DateAdded, f.Notes, f.File)
	if err != nil {
		return nil, fmt.Errorf("failed to create follow-up: %w", err)
	}
	return f, nil
}

// GetFollowUp 获取跟进记录
func (r *PostgresFollowUpsRepository) GetFollowUp(ctx context.Context, followUpID string) (*domain.FollowUp, error) {
	if !validID(followUpID) {
		return nil, notFound("follow-up")
	}
	var f domain.FollowUp
	err := r.db.QueryRowContext(ctx, `
		SELECT follow_up_id::text, lead_id::text, date_added, notes, file
		FROM follow_ups
		WHERE follow_up_id = $1
	`, followUpID).Scan(&f.FollowUpID, &f.LeadID, &f.DateAdded, &f.Notes, &f.File)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("follow-up")
		}
		return nil, fmt.Errorf("failed to get follow-up: %w", err)
	}
	return &f, nil
}

// ListFollowUps 查询线索的跟进记录（按时间顺序）
func (r *PostgresFollowUpsRepository) ListFollowUps(ctx context.Context, leadID string) ([]*domain.FollowUp, error) {
	if !validID(leadID) {
		return []*domain.FollowUp{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT follow_up_id::text, lead_id::text, date_added, notes, file
		FROM follow_ups
		WHERE lead_id = $1
		ORDER BY date_added, follow_up_id
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	defer rows.Close()

	out := []*domain.FollowUp{}
	for rows.Next() {
		var f domain.FollowUp
		if err := rows.Scan(&f.FollowUpID, &f.LeadID, &f.DateAdded, &f.Notes, &f.File); err != nil {
			return nil, fmt.Errorf("failed to scan follow-up: %w", err)
		}
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate follow-ups: %w", err)
	}
	return out, nil
}

// UpdateFollowUp 更新 notes / file（date_added 不可变）
func (r *PostgresFollowUpsRepository) UpdateFollowUp(ctx context.Context, f *domain.FollowUp) error {
	if !validID(f.FollowUpID) {
		return notFound("follow-up")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE follow_ups SET notes = $2, file = $3
		WHERE follow_up_id = $1
	`, f.FollowUpID, f.Notes, f.File)
	if err != nil {
		return fmt.Errorf("failed to update follow-up: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("follow-up")
	}
	return nil
}

// DeleteFollowUp 删除跟进记录
func (r *PostgresFollowUpsRepository) DeleteFollowUp(ctx context.Context, followUpID string) error {
	if !validID(followUpID) {
		return notFound("follow-up")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM follow_ups WHERE follow_up_id = $1`, followUpID)
	if err != nil {
		return fmt.Errorf("failed to delete follow-up: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("follow-up")
	}
	return nil
}
