//go:build integration
// +build integration

package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"leadcrm/common/database"
	"leadcrm/internal/config"
	"leadcrm/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// getTestDB 获取测试数据库连接（不可用时跳过）
func getTestDB(t *testing.T) *sql.DB {
	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		t.Skipf("Skipping integration test: database not available: %v", err)
		return nil
	}
	return db
}

func createTestOrganizer(t *testing.T, db *sql.DB) *domain.User {
	repo := NewPostgresUsersRepository(db)
	name := "it-" + uuid.NewString()[:8]
	u, err := repo.CreateOrganizer(context.Background(), &domain.User{Username: name, Email: name + "@example.com"}, name)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM users WHERE user_id = $1`, u.UserID)
	})
	return u
}

func TestPostgresLeadsRepository_Integration_ConversionFlow(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ctx := context.Background()
	org := createTestOrganizer(t, db)
	orgID := org.Role.OrganizationID()

	cats := NewPostgresCategoriesRepository(db)
	leads := NewPostgresLeadsRepository(db)

	contacted, err := cats.CreateCategory(ctx, &domain.Category{OrganizationID: orgID, Name: "Contacted"})
	require.NoError(t, err)
	converted, err := cats.CreateCategory(ctx, &domain.Category{OrganizationID: orgID, Name: domain.ConvertedCategoryName})
	require.NoError(t, err)

	lead, err := leads.CreateLead(ctx, &domain.Lead{
		OrganizationID: orgID, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", PhoneNumber: "555",
	})
	require.NoError(t, err)

	scope := LeadScope{OrganizationID: orgID}
	convID := nullString(converted.CategoryID)
	move := func(categoryID string) *domain.Lead {
		l, err := leads.UpdateLead(ctx, scope, lead.LeadID, func(l *domain.Lead) error {
			l.ApplyCategory(nullString(categoryID), convID, time.Now().UTC())
			return nil
		})
		require.NoError(t, err)
		return l
	}

	require.False(t, move(contacted.CategoryID).ConvertedDate.Valid)
	first := move(converted.CategoryID).ConvertedDate
	require.True(t, first.Valid)
	again := move(contacted.CategoryID).ConvertedDate
	require.True(t, again.Valid)
	require.True(t, first.Time.Equal(again.Time))

	stats, err := leads.Stats(ctx, scope, StatsWindowStart(time.Now(), 30))
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalLeads)
	require.Equal(t, 0, stats.RecentConverted)

	other := createTestOrganizer(t, db)
	_, err = leads.GetLead(ctx, LeadScope{OrganizationID: other.Role.OrganizationID()}, lead.LeadID)
	require.True(t, errors.Is(err, domain.ErrNotFound))
}
