package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"leadcrm/internal/domain"

	"github.com/google/uuid"
)

// PostgresLeadsRepository 线索Repository实现
type PostgresLeadsRepository struct {
	db *sql.DB
}

// NewPostgresLeadsRepository 创建线索Repository
func NewPostgresLeadsRepository(db *sql.DB) *PostgresLeadsRepository {
	return &PostgresLeadsRepository{db: db}
}

var _ LeadsRepository = (*PostgresLeadsRepository)(nil)

const leadColumns = `
	l.lead_id::text,
	l.organization_id::text,
	l.first_name,
	l.last_name,
	l.age,
	l.email,
	l.phone_number,
	l.description,
	l.agent_id::text,
	l.category_id::text,
	l.profile_picture,
	l.date_added,
	l.converted_date
`

func scanLead(row interface{ Scan(dest ...any) error }) (*domain.Lead, error) {
	var l domain.Lead
	if err := row.Scan(
		&l.LeadID,
		&l.OrganizationID,
		&l.FirstName,
		&l.LastName,
		&l.Age,
		&l.Email,
		&l.PhoneNumber,
		&l.Description,
		&l.AgentID,
		&l.CategoryID,
		&l.ProfilePicture,
		&l.DateAdded,
		&l.ConvertedDate,
	); err != nil {
		return nil, err
	}
	return &l, nil
}

// scopeWhere builds the tenant/agent predicate; argIdx is the next placeholder number.
func scopeWhere(scope LeadScope, argIdx int) ([]string, []any, int) {
	where := []string{fmt.Sprintf("l.organization_id = $%d", argIdx)}
	args := []any{scope.OrganizationID}
	argIdx++
	if scope.AgentID != "" {
		where = append(where, fmt.Sprintf("l.agent_id = $%d", argIdx))
		args = append(args, scope.AgentID)
		argIdx++
	}
	return where, args, argIdx
}

func scopeIDsValid(scope LeadScope) bool {
	if !validID(scope.OrganizationID) {
		return false
	}
	return scope.AgentID == "" || validID(scope.AgentID)
}

const leadInsert = `
	INSERT INTO leads (
		lead_id, organization_id, first_name, last_name, age, email, phone_number,
		description, agent_id, category_id, profile_picture, date_added, converted_date
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertLead(ctx context.Context, db execer, lead *domain.Lead) error {
	if lead.LeadID == "" {
		lead.LeadID = uuid.NewString()
	}
	if lead.DateAdded.IsZero() {
		lead.DateAdded = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, leadInsert,
		lead.LeadID,
		lead.OrganizationID,
		lead.FirstName,
		lead.LastName,
		lead.Age,
		lead.Email,
		lead.PhoneNumber,
		lead.Description,
		lead.AgentID,
		lead.CategoryID,
		lead.ProfilePicture,
		lead.DateAdded,
		lead.ConvertedDate,
	)
	return err
}

// CreateLead 创建线索
func (r *PostgresLeadsRepository) CreateLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	if !validID(lead.OrganizationID) {
		return nil, fmt.Errorf("organization_id is required")
	}
	if err := insertLead(ctx, r.db, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return lead, nil
}

// CreateLeads 批量创建（单事务，任一行失败整体回滚）
func (r *PostgresLeadsRepository) CreateLeads(ctx context.Context, leads []*domain.Lead) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, lead := range leads {
		if err := insertLead(ctx, tx, lead); err != nil {
			return fmt.Errorf("failed to create lead at row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetLead 按范围获取线索
func (r *PostgresLeadsRepository) GetLead(ctx context.Context, scope LeadScope, leadID string) (*domain.Lead, error) {
	if !scopeIDsValid(scope) || !validID(leadID) {
		return nil, notFound("lead")
	}
	where, args, argIdx := scopeWhere(scope, 1)
	where = append(where, fmt.Sprintf("l.lead_id = $%d", argIdx))
	args = append(args, leadID)

	query := fmt.Sprintf(`SELECT %s FROM leads l WHERE %s`, leadColumns, strings.Join(where, " AND "))
	lead, err := scanLead(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("lead")
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// ListLeads 查询线索列表（按创建顺序）
func (r *PostgresLeadsRepository) ListLeads(ctx context.Context, filter LeadFilter) ([]*domain.Lead, error) {
	if !scopeIDsValid(filter.Scope) {
		return []*domain.Lead{}, nil
	}
	where, args, argIdx := scopeWhere(filter.Scope, 1)

	if filter.Assigned != nil {
		if *filter.Assigned {
			where = append(where, "l.agent_id IS NOT NULL")
		} else {
			where = append(where, "l.agent_id IS NULL")
		}
	}
	if filter.Uncategorized {
		where = append(where, "l.category_id IS NULL")
	} else if filter.CategoryID != "" {
		if !validID(filter.CategoryID) {
			return []*domain.Lead{}, nil
		}
		where = append(where, fmt.Sprintf("l.category_id = $%d", argIdx))
		args = append(args, filter.CategoryID)
		argIdx++
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, fmt.Sprintf(`(l.first_name ILIKE $%[1]d ESCAPE '\' OR l.last_name ILIKE $%[1]d ESCAPE '\' OR l.email ILIKE $%[1]d ESCAPE '\')`, argIdx))
		args = append(args, containsPattern(s))
		argIdx++
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM leads l
		WHERE %s
		ORDER BY l.created_seq
	`, leadColumns, strings.Join(where, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []*domain.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}
	return leads, nil
}

// UpdateLead 事务内读取（FOR UPDATE）、修改、写回
func (r *PostgresLeadsRepository) UpdateLead(ctx context.Context, scope LeadScope, leadID string, mutate LeadMutator) (*domain.Lead, error) {
	if !scopeIDsValid(scope) || !validID(leadID) {
		return nil, notFound("lead")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	where, args, argIdx := scopeWhere(scope, 1)
	where = append(where, fmt.Sprintf("l.lead_id = $%d", argIdx))
	args = append(args, leadID)
	query := fmt.Sprintf(`SELECT %s FROM leads l WHERE %s FOR UPDATE`, leadColumns, strings.Join(where, " AND "))

	lead, err := scanLead(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("lead")
		}
		return nil, fmt.Errorf("failed to load lead: %w", err)
	}

	if err := mutate(lead); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE leads SET
			first_name = $2,
			last_name = $3,
			age = $4,
			email = $5,
			phone_number = $6,
			description = $7,
			agent_id = $8,
			category_id = $9,
			profile_picture = $10,
			converted_date = $11
		WHERE lead_id = $1
	`,
		lead.LeadID,
		lead.FirstName,
		lead.LastName,
		lead.Age,
		lead.Email,
		lead.PhoneNumber,
		lead.Description,
		lead.AgentID,
		lead.CategoryID,
		lead.ProfilePicture,
		lead.ConvertedDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return lead, nil
}

// DeleteLead 按范围删除线索
func (r *PostgresLeadsRepository) DeleteLead(ctx context.Context, scope LeadScope, leadID string) error {
	if !scopeIDsValid(scope) || !validID(leadID) {
		return notFound("lead")
	}
	where, args, argIdx := scopeWhere(scope, 1)
	where = append(where, fmt.Sprintf("l.lead_id = $%d", argIdx))
	args = append(args, leadID)

	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM leads l WHERE %s`, strings.Join(where, " AND ")), args...)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("lead")
	}
	return nil
}

// CountByCategory 按分类统计线索数量（"" 为未分类）
func (r *PostgresLeadsRepository) CountByCategory(ctx context.Context, scope LeadScope) (map[string]int, error) {
	counts := map[string]int{}
	if !scopeIDsValid(scope) {
		return counts, nil
	}
	where, args, _ := scopeWhere(scope, 1)
	query := fmt.Sprintf(`
		SELECT COALESCE(l.category_id::text, ''), COUNT(*)
		FROM leads l
		WHERE %s
		GROUP BY 1
	`, strings.Join(where, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count leads by category: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var categoryID string
		var n int
		if err := rows.Scan(&categoryID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts[categoryID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category counts: %w", err)
	}
	return counts, nil
}

// Stats 总数 / 窗口内新增 / 窗口内新增且当前处于 Converted
func (r *PostgresLeadsRepository) Stats(ctx context.Context, scope LeadScope, since time.Time) (*LeadStats, error) {
	stats := &LeadStats{}
	if !scopeIDsValid(scope) {
		return stats, nil
	}
	where, args, argIdx := scopeWhere(scope, 1)
	args = append(args, since, domain.ConvertedCategoryName)

	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE l.date_added >= $%d),
			COUNT(*) FILTER (WHERE l.date_added >= $%d AND c.name = $%d)
		FROM leads l
		LEFT JOIN categories c
			ON c.category_id = l.category_id AND c.organization_id = l.organization_id
		WHERE %s
	`, argIdx, argIdx, argIdx+1, strings.Join(where, " AND "))

	err := r.db.QueryRowContext(ctx, query, args...).Scan(&stats.TotalLeads, &stats.RecentLeads, &stats.RecentConverted)
	if err != nil {
		return nil, fmt.Errorf("failed to compute lead stats: %w", err)
	}
	return stats, nil
}
