package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"leadcrm/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOrgID   = "11111111-1111-1111-1111-111111111111"
	testAgentID = "22222222-2222-2222-2222-222222222222"
	testLeadID  = "33333333-3333-3333-3333-333333333333"
	testCatID   = "44444444-4444-4444-4444-444444444444"
)

var leadCols = []string{
	"lead_id", "organization_id", "first_name", "last_name", "age", "email", "phone_number",
	"description", "agent_id", "category_id", "profile_picture", "date_added", "converted_date",
}

// validTime matches a non-nil time.Time argument.
type validTime struct{}

func (validTime) Match(v driver.Value) bool {
	_, ok := v.(time.Time)
	return ok
}

func TestPostgresLeadsRepository_GetLead_AgentScope(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresLeadsRepository(db)
	added := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM leads l WHERE l.organization_id = \$1 AND l.agent_id = \$2 AND l.lead_id = \$3`).
		WithArgs(testOrgID, testAgentID, testLeadID).
		WillReturnRows(sqlmock.NewRows(leadCols).AddRow(
			testLeadID, testOrgID, "Ada", "Lovelace", 36, "ada@x.com", "555", "", testAgentID, nil, nil, added, nil,
		))

	lead, err := repo.GetLead(context.Background(), LeadScope{OrganizationID: testOrgID, AgentID: testAgentID}, testLeadID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", lead.FirstName)
	assert.True(t, lead.AgentID.Valid)
	assert.False(t, lead.CategoryID.Valid)
	assert.False(t, lead.ConvertedDate.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLeadsRepository_GetLead_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresLeadsRepository(db)

	mock.ExpectQuery(`SELECT .* FROM leads l WHERE l.organization_id = \$1 AND l.lead_id = \$2`).
		WithArgs(testOrgID, testLeadID).
		WillReturnRows(sqlmock.NewRows(leadCols))

	_, err = repo.GetLead(context.Background(), LeadScope{OrganizationID: testOrgID}, testLeadID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// malformed id never reaches the database
	_, err = repo.GetLead(context.Background(), LeadScope{OrganizationID: testOrgID}, "not-a-uuid")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLeadsRepository_UpdateLead_Commit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresLeadsRepository(db)
	added := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM leads l WHERE l.organization_id = \$1 AND l.lead_id = \$2 FOR UPDATE`).
		WithArgs(testOrgID, testLeadID).
		WillReturnRows(sqlmock.NewRows(leadCols).AddRow(
			testLeadID, testOrgID, "Ada", "Lovelace", 36, "ada@x.com", "555", "", nil, nil, nil, added, nil,
		))
	mock.ExpectExec(`UPDATE leads SET`).
		WithArgs(testLeadID, "Ada", "Lovelace", 36, "ada@x.com", "555", "", nil, testCatID, nil, validTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	converted := nullString(testCatID)
	lead, err := repo.UpdateLead(context.Background(), LeadScope{OrganizationID: testOrgID}, testLeadID, func(l *domain.Lead) error {
		l.ApplyCategory(converted, converted, time.Now())
		return nil
	})
	require.NoError(t, err)
	assert.True(t, lead.ConvertedDate.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLeadsRepository_UpdateLead_MutatorErrorRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresLeadsRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM leads l WHERE .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(leadCols).AddRow(
			testLeadID, testOrgID, "Ada", "Lovelace", 36, "ada@x.com", "555", "", nil, nil, nil, time.Now(), nil,
		))
	mock.ExpectRollback()

	boom := errors.New("boom")
	_, err = repo.UpdateLead(context.Background(), LeadScope{OrganizationID: testOrgID}, testLeadID, func(*domain.Lead) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLeadsRepository_CreateLeads_FailureRollsBackBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresLeadsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO leads`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO leads`).WillReturnError(errors.New("value too long"))
	mock.ExpectRollback()

	leads := []*domain.Lead{
		{OrganizationID: testOrgID, FirstName: "A", LastName: "One"},
		{OrganizationID: testOrgID, FirstName: "B", LastName: "Two"},
		{OrganizationID: testOrgID, FirstName: "C", LastName: "Three"},
	}
	err = repo.CreateLeads(context.Background(), leads)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLeadsRepository_Stats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresLeadsRepository(db)
	since := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(\*\) FILTER \(WHERE l.date_added >= \$2\), COUNT\(\*\) FILTER \(WHERE l.date_added >= \$2 AND c.name = \$3\)`).
		WithArgs(testOrgID, since, domain.ConvertedCategoryName).
		WillReturnRows(sqlmock.NewRows([]string{"total", "recent", "converted"}).AddRow(10, 4, 1))

	stats, err := repo.Stats(context.Background(), LeadScope{OrganizationID: testOrgID}, since)
	require.NoError(t, err)
	assert.Equal(t, &LeadStats{TotalLeads: 10, RecentLeads: 4, RecentConverted: 1}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLeadsRepository_ListLeads_Filters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresLeadsRepository(db)

	mock.ExpectQuery(`WHERE l.organization_id = \$1 AND l.agent_id IS NULL AND \(l.first_name ILIKE \$2 ESCAPE '\\' OR l.last_name ILIKE \$2 ESCAPE '\\' OR l.email ILIKE \$2 ESCAPE '\\'\) ORDER BY l.created_seq`).
		WithArgs(testOrgID, "%ada%").
		WillReturnRows(sqlmock.NewRows(leadCols))

	leads, err := repo.ListLeads(context.Background(), LeadFilter{
		Scope:    LeadScope{OrganizationID: testOrgID},
		Assigned: BoolPtr(false),
		Search:   "ada",
	})
	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLeadsRepository_ListLeads_SearchIsLiteral(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresLeadsRepository(db)

	mock.ExpectQuery(`ILIKE \$2 ESCAPE`).
		WithArgs(testOrgID, `%50\%\_off\\%`).
		WillReturnRows(sqlmock.NewRows(leadCols))

	_, err = repo.ListLeads(context.Background(), LeadFilter{
		Scope:  LeadScope{OrganizationID: testOrgID},
		Search: `50%_off\`,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%ada%", containsPattern("ada"))
	assert.Equal(t, `%a\_b\%c%`, containsPattern("a_b%c"))
}
