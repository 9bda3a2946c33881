package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadcrm/internal/domain"
	"leadcrm/internal/filestore"
	"leadcrm/internal/repository"
	"leadcrm/internal/store"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"
)

type sentMail struct {
	To, Subject, Body string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (n *fakeNotifier) Sent() []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMail(nil), n.sent...)
}

// testEnv wires every service against one memory store.
type testEnv struct {
	users      *repository.MemoryUsersRepo
	agents     *repository.MemoryAgentsRepo
	leads      *repository.MemoryLeadsRepo
	categories *repository.MemoryCategoriesRepo
	followUps  *repository.MemoryFollowUpsRepo
	kv         *store.MemoryKV
	files      *filestore.LocalStore
	notifier   *fakeNotifier

	auth      *AuthService
	leadSvc   *LeadService
	catSvc    *CategoryService
	fuSvc     *FollowUpService
	agentSvc  *AgentService
	dashSvc   *DashboardService
	importSvc *ImportService
	messages  *Messages
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := repository.NewMemoryStore()
	logger := zap.NewNop()
	e := &testEnv{
		users:      repository.NewMemoryUsersRepo(s),
		agents:     repository.NewMemoryAgentsRepo(s),
		leads:      repository.NewMemoryLeadsRepo(s),
		categories: repository.NewMemoryCategoriesRepo(s),
		followUps:  repository.NewMemoryFollowUpsRepo(s),
		kv:         store.NewMemoryKV(),
		files:      filestore.NewLocalStore(t.TempDir(), 1<<20),
		notifier:   &fakeNotifier{},
	}
	passwords := NewPasswordHasher(bcrypt.MinCost)
	e.auth = NewAuthService(e.users, e.kv, passwords, time.Hour, logger)
	e.leadSvc = NewLeadService(e.leads, e.categories, e.agents, e.files, e.notifier, "test@test.com", logger)
	e.catSvc = NewCategoryService(e.categories, e.leads, logger)
	e.fuSvc = NewFollowUpService(e.followUps, e.leads, e.files, logger)
	e.agentSvc = NewAgentService(e.users, e.agents, passwords, e.notifier, logger)
	e.dashSvc = NewDashboardService(e.leads, logger)
	e.importSvc = NewImportService(e.users, e.leads, logger)
	e.messages = NewMessages(e.kv, time.Hour)
	return e
}

func (e *testEnv) organizer(t *testing.T, username string) *Actor {
	t.Helper()
	u, err := e.users.CreateOrganizer(context.Background(), &domain.User{
		Username: username,
		Email:    username + "@x.com",
	}, username)
	require.NoError(t, err)
	return ActorFromUser(u)
}

func (e *testEnv) agent(t *testing.T, org *Actor, username string) *Actor {
	t.Helper()
	u, _, err := e.users.CreateAgentUser(context.Background(), &domain.User{
		Username: username,
		Email:    username + "@x.com",
	}, org.OrganizationID())
	require.NoError(t, err)
	return ActorFromUser(u)
}

func (e *testEnv) category(t *testing.T, org *Actor, name string) *domain.Category {
	t.Helper()
	c, err := e.catSvc.Create(context.Background(), org, name)
	require.NoError(t, err)
	return c
}

func (e *testEnv) lead(t *testing.T, org *Actor, first string, agent *Actor) *domain.Lead {
	t.Helper()
	req := validLead(first)
	if agent != nil {
		req.AgentID = agent.Role.AgentID()
	}
	l, err := e.leadSvc.Create(context.Background(), org, req)
	require.NoError(t, err)
	return l
}

func validLead(first string) LeadRequest {
	return LeadRequest{LeadFields: domain.LeadFields{
		FirstName:   first,
		LastName:    "Doe",
		Age:         30,
		Email:       first + "@lead.com",
		PhoneNumber: "555-0100",
	}}
}

func isValidation(err error, field string) bool {
	var v *domain.ValidationError
	if !errors.As(err, &v) {
		return false
	}
	_, ok := v.Fields[field]
	return ok
}
