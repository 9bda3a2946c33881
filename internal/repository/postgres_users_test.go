package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadcrm/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{
	"user_id", "username", "email", "first_name", "last_name", "password_hash", "role", "created_at",
	"organization_id", "agent_id", "agent_organization_id",
}

func TestPostgresUsersRepository_CreateOrganizer_CreatesOrganization(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresUsersRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "alice", "a@x.com", "Alice", "A", sqlmock.AnyArg(), "organizer", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO organizations`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "alice", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := repo.CreateOrganizer(context.Background(), &domain.User{
		Username: "alice", Email: "a@x.com", FirstName: "Alice", LastName: "A",
	}, "alice")
	require.NoError(t, err)
	assert.True(t, u.Role.IsOrganizer())
	assert.NotEmpty(t, u.Role.OrganizationID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUsersRepository_CreateOrganizer_DuplicateUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresUsersRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err = repo.CreateOrganizer(context.Background(), &domain.User{Username: "alice"}, "alice")
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUsersRepository_CreateAgentUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresUsersRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "bob", "b@x.com", "", "", sqlmock.AnyArg(), "agent", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO organizations`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO agents`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), testOrgID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, agent, err := repo.CreateAgentUser(context.Background(), &domain.User{Username: "bob", Email: "b@x.com"}, testOrgID)
	require.NoError(t, err)
	assert.True(t, u.Role.IsAgent())
	assert.Equal(t, testOrgID, u.Role.OrganizationID())
	assert.Equal(t, agent.AgentID, u.Role.AgentID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUsersRepository_GetUser_ResolvesAgentRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresUsersRepository(db)
	userID := "55555555-5555-5555-5555-555555555555"
	ownOrg := "66666666-6666-6666-6666-666666666666"

	mock.ExpectQuery(`FROM users u LEFT JOIN organizations o .* WHERE u.user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			userID, "bob", "b@x.com", "Bob", "B", nil, "agent", time.Now(), ownOrg, testAgentID, testOrgID,
		))

	u, err := repo.GetUser(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, u.Role.IsAgent())
	assert.Equal(t, testOrgID, u.Role.OrganizationID(), "agents act in the inviting organization")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUsersRepository_GetOrganizerByEmail_Ambiguous(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresUsersRepository(db)
	now := time.Now()

	mock.ExpectQuery(`WHERE lower\(u.email\) = lower\(\$1\) AND u.role = 'organizer'\s+LIMIT 2`).
		WithArgs("shared@x.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-1", "one", "shared@x.com", "", "", nil, "organizer", now, "org-1", nil, nil).
			AddRow("u-2", "two", "shared@x.com", "", "", nil, "organizer", now, "org-2", nil, nil))

	_, err = repo.GetOrganizerByEmail(context.Background(), "shared@x.com")
	assert.True(t, errors.Is(err, domain.ErrAmbiguous))
	assert.NoError(t, mock.ExpectationsWereMet())
}
