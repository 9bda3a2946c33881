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

// PostgresUsersRepository 用户/组织Repository实现
type PostgresUsersRepository struct {
	db *sql.DB
}

// NewPostgresUsersRepository 创建用户Repository
func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

// 确保实现了接口
var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userSelect = `
	SELECT
		u.user_id::text,
		u.username,
		u.email,
		u.first_name,
		u.last_name,
		u.password_hash,
		u.role,
		u.created_at,
		o.organization_id::text,
		a.agent_id::text,
		a.organization_id::text
	FROM users u
	LEFT JOIN organizations o ON o.owner_user_id = u.user_id
	LEFT JOIN agents a ON a.user_id = u.user_id
`

func scanUser(row interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var (
		u                         domain.User
		role                      string
		ownOrg, agentID, agentOrg sql.NullString
	)
	if err := row.Scan(
		&u.UserID,
		&u.Username,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&role,
		&u.CreatedAt,
		&ownOrg,
		&agentID,
		&agentOrg,
	); err != nil {
		return nil, err
	}
	u.RoleKind = domain.RoleKind(role)
	switch u.RoleKind {
	case domain.RoleAgent:
		if agentID.Valid && agentOrg.Valid {
			u.Role = domain.NewAgentRole(agentOrg.String, agentID.String)
		}
	default:
		if ownOrg.Valid {
			u.Role = domain.NewOrganizerRole(ownOrg.String)
		}
	}
	return &u, nil
}

func (r *PostgresUsersRepository) insertUserWithOrg(ctx context.Context, tx *sql.Tx, user *domain.User, role domain.RoleKind, orgName string) (string, error) {
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.RoleKind = role

	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (user_id, username, email, first_name, last_name, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, user.UserID, user.Username, user.Email, user.FirstName, user.LastName, user.PasswordHash, string(role), user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("username %q: %w", user.Username, domain.ErrConflict)
		}
		return "", fmt.Errorf("failed to insert user: %w", err)
	}

	orgID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO organizations (organization_id, owner_user_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, orgID, user.UserID, orgName, user.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert organization: %w", err)
	}
	return orgID, nil
}

// CreateOrganizer 创建组织者用户及其组织
func (r *PostgresUsersRepository) CreateOrganizer(ctx context.Context, user *domain.User, orgName string) (*domain.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	orgID, err := r.insertUserWithOrg(ctx, tx, user, domain.RoleOrganizer, orgName)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	user.Role = domain.NewOrganizerRole(orgID)
	return user, nil
}

// CreateAgentUser 创建 agent 用户并绑定到 organizationID
func (r *PostgresUsersRepository) CreateAgentUser(ctx context.Context, user *domain.User, organizationID string) (*domain.User, *domain.Agent, error) {
	if !validID(organizationID) {
		return nil, nil, notFound("organization")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := r.insertUserWithOrg(ctx, tx, user, domain.RoleAgent, user.Username); err != nil {
		return nil, nil, err
	}

	agent := &domain.Agent{
		AgentID:        uuid.NewString(),
		UserID:         user.UserID,
		OrganizationID: organizationID,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO agents (agent_id, user_id, organization_id)
		VALUES ($1, $2, $3)
	`, agent.AgentID, agent.UserID, agent.OrganizationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert agent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	user.Role = domain.NewAgentRole(organizationID, agent.AgentID)
	agent.User = user
	return user, agent, nil
}

// GetUser 根据 user_id 获取用户
func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if !validID(userID) {
		return nil, notFound("user")
	}
	u, err := scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE u.user_id = $1`, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("user")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByUsername 根据 username 获取用户
func (r *PostgresUsersRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	if username == "" {
		return nil, notFound("user")
	}
	u, err := scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE u.username = $1`, username))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("user")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetOrganizerByEmail 按邮箱查找组织者；多个组织者共用邮箱时返回 ErrAmbiguous
func (r *PostgresUsersRepository) GetOrganizerByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, notFound("organizer")
	}
	query := userSelect + `
		WHERE lower(u.email) = lower($1) AND u.role = 'organizer'
		LIMIT 2
	`
	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get organizer: %w", err)
	}
	defer rows.Close()

	var found []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organizer: %w", err)
		}
		found = append(found, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get organizer: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, notFound("organizer")
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("organizer email %s: %w", email, domain.ErrAmbiguous)
	}
}

// GetOrganization 根据 organization_id 获取组织
func (r *PostgresUsersRepository) GetOrganization(ctx context.Context, organizationID string) (*domain.Organization, error) {
	if !validID(organizationID) {
		return nil, notFound("organization")
	}
	var o domain.Organization
	err := r.db.QueryRowContext(ctx, `
		SELECT organization_id::text, owner_user_id::text, name, created_at
		FROM organizations
		WHERE organization_id = $1
	`, organizationID).Scan(&o.OrganizationID, &o.OwnerUserID, &o.Name, &o.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("organization")
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &o, nil
}

// UpdateUserProfile 更新 email / first_name / last_name
func (r *PostgresUsersRepository) UpdateUserProfile(ctx context.Context, user *domain.User) error {
	if !validID(user.UserID) {
		return notFound("user")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET email = $2, first_name = $3, last_name = $4
		WHERE user_id = $1
	`, user.UserID, user.Email, user.FirstName, user.LastName)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("user")
	}
	return nil
}

// SetPassword 设置密码哈希
func (r *PostgresUsersRepository) SetPassword(ctx context.Context, userID string, hash []byte) error {
	if !validID(userID) {
		return notFound("user")
	}
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE user_id = $1`, userID, hash)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("user")
	}
	return nil
}
