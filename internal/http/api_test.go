package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leadcrm/internal/filestore"
	"leadcrm/internal/importer"
	"leadcrm/internal/repository"
	"leadcrm/internal/service"
	"leadcrm/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"
)

type apiEnv struct {
	srv    *httptest.Server
	agents *service.AgentService
	auth   *service.AuthService
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	logger := zap.NewNop()
	s := repository.NewMemoryStore()
	users := repository.NewMemoryUsersRepo(s)
	agents := repository.NewMemoryAgentsRepo(s)
	leads := repository.NewMemoryLeadsRepo(s)
	categories := repository.NewMemoryCategoriesRepo(s)
	followUps := repository.NewMemoryFollowUpsRepo(s)
	kv := store.NewMemoryKV()
	files := filestore.NewLocalStore(t.TempDir(), 1<<20)
	passwords := service.NewPasswordHasher(bcrypt.MinCost)

	svcs := Services{
		Auth:       service.NewAuthService(users, kv, passwords, time.Hour, logger),
		Leads:      service.NewLeadService(leads, categories, agents, files, nil, "test@test.com", logger),
		FollowUps:  service.NewFollowUpService(followUps, leads, files, logger),
		Categories: service.NewCategoryService(categories, leads, logger),
		Agents:     service.NewAgentService(users, agents, passwords, nil, logger),
		Dashboard:  service.NewDashboardService(leads, logger),
		Messages:   service.NewMessages(kv, time.Hour),
	}
	h, err := NewAPI(svcs, Options{CookieName: "leadcrm_session", MaxUpload: 1 << 20, Metrics: NewMetrics()}, logger)
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &apiEnv{srv: srv, agents: svcs.Agents, auth: svcs.Auth}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env
}

func (e *apiEnv) signupAndLogin(t *testing.T, username string) string {
	t.Helper()
	status, _ := e.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username":         username,
		"email":            username + "@x.com",
		"password":         "correct-horse",
		"password_confirm": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, status)
	return e.login(t, username, "correct-horse")
}

func (e *apiEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	status, env := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status)
	var resp service.LoginResponse
	require.NoError(t, json.Unmarshal(env.Result, &resp))
	return resp.Token
}

func leadBody(first string) map[string]any {
	return map[string]any{
		"first_name":   first,
		"last_name":    "Doe",
		"age":          30,
		"email":        strings.ToLower(first) + "@lead.com",
		"phone_number": "555",
	}
}

func (e *apiEnv) createLead(t *testing.T, token, first string, extra map[string]any) LeadItem {
	t.Helper()
	body := leadBody(first)
	for k, v := range extra {
		body[k] = v
	}
	status, env := e.do(t, http.MethodPost, "/api/v1/leads", token, body)
	require.Equal(t, http.StatusCreated, status, env.Message)
	var item LeadItem
	require.NoError(t, json.Unmarshal(env.Result, &item))
	return item
}

func TestAPI_Unauthenticated(t *testing.T) {
	e := newAPIEnv(t)
	for _, path := range []string{"/api/v1/leads", "/api/v1/categories", "/api/v1/agents", "/api/v1/dashboard", "/api/v1/messages"} {
		status, env := e.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, ResultError, env.Code)
	}
	status, _ := e.do(t, http.MethodGet, "/api/v1/leads", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_LeadLifecycleAndMessages(t *testing.T) {
	e := newAPIEnv(t)
	token := e.signupAndLogin(t, "alice")

	lead := e.createLead(t, token, "Ada", nil)
	assert.Nil(t, lead.ConvertedDate)

	status, env := e.do(t, http.MethodPost, "/api/v1/categories", token, map[string]string{"name": "Converted"})
	require.Equal(t, http.StatusCreated, status)
	var cat CategoryView
	require.NoError(t, json.Unmarshal(env.Result, &cat))

	status, env = e.do(t, http.MethodPut, "/api/v1/leads/"+lead.LeadID+"/category", token, map[string]string{"category_id": cat.CategoryID})
	require.Equal(t, http.StatusOK, status)
	var updated LeadItem
	require.NoError(t, json.Unmarshal(env.Result, &updated))
	require.NotNil(t, updated.ConvertedDate)

	status, env = e.do(t, http.MethodGet, "/api/v1/messages", token, nil)
	require.Equal(t, http.StatusOK, status)
	var msgs []string
	require.NoError(t, json.Unmarshal(env.Result, &msgs))
	assert.Equal(t, []string{
		"The lead has been successfully created",
		"The Converted category has been successfully created",
	}, msgs)

	_, env = e.do(t, http.MethodGet, "/api/v1/messages", token, nil)
	require.NoError(t, json.Unmarshal(env.Result, &msgs))
	assert.Empty(t, msgs)

	status, _ = e.do(t, http.MethodDelete, "/api/v1/leads/"+lead.LeadID, token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = e.do(t, http.MethodGet, "/api/v1/leads/"+lead.LeadID, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_ValidationErrorCarriesFields(t *testing.T) {
	e := newAPIEnv(t)
	token := e.signupAndLogin(t, "alice")

	status, env := e.do(t, http.MethodPost, "/api/v1/leads", token, map[string]any{"age": -3})
	require.Equal(t, http.StatusBadRequest, status)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(env.Result, &fields))
	assert.Contains(t, fields, "first_name")
	assert.Contains(t, fields, "age")
}

func TestAPI_AgentScopeAndCrossOrgAssignment(t *testing.T) {
	e := newAPIEnv(t)
	alice := e.signupAndLogin(t, "alice")
	carol := e.signupAndLogin(t, "carol")

	status, env := e.do(t, http.MethodPost, "/api/v1/agents", alice, map[string]string{
		"username": "bob",
		"email":    "bob@x.com",
		"password": "bob-password",
	})
	require.Equal(t, http.StatusCreated, status)
	var bob AgentItem
	require.NoError(t, json.Unmarshal(env.Result, &bob))

	status, env = e.do(t, http.MethodPost, "/api/v1/agents", carol, map[string]string{
		"username": "mallory",
		"email":    "m@x.com",
	})
	require.Equal(t, http.StatusCreated, status)
	var mallory AgentItem
	require.NoError(t, json.Unmarshal(env.Result, &mallory))

	mine := e.createLead(t, alice, "Mine", map[string]any{"agent_id": bob.AgentID})
	other := e.createLead(t, alice, "Other", nil)

	status, env = e.do(t, http.MethodPut, "/api/v1/leads/"+other.LeadID+"/assign-agent", alice, map[string]string{"agent_id": mallory.AgentID})
	require.Equal(t, http.StatusBadRequest, status)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(env.Result, &fields))
	assert.Contains(t, fields, "agent")

	bobToken := e.login(t, "bob", "bob-password")
	status, env = e.do(t, http.MethodGet, "/api/v1/leads", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Leads      []LeadItem `json:"leads"`
		Unassigned []LeadItem `json:"unassigned_leads"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &list))
	require.Len(t, list.Leads, 1)
	assert.Equal(t, mine.LeadID, list.Leads[0].LeadID)
	assert.Nil(t, list.Unassigned)

	status, _ = e.do(t, http.MethodGet, "/api/v1/leads/"+other.LeadID, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = e.do(t, http.MethodGet, "/api/v1/leads/"+mine.LeadID, carol, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = e.do(t, http.MethodGet, "/api/v1/agents", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_LeadNamesAreScoped(t *testing.T) {
	e := newAPIEnv(t)
	alice := e.signupAndLogin(t, "alice")
	carol := e.signupAndLogin(t, "carol")
	e.createLead(t, alice, "Ada", nil)
	e.createLead(t, carol, "Cid", nil)

	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/api/v1/leads/json", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+alice)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var names map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	assert.Equal(t, map[string]string{"Ada": "Doe"}, names)
}

func TestAPI_FollowUpMultipartUpload(t *testing.T) {
	e := newAPIEnv(t)
	token := e.signupAndLogin(t, "alice")
	lead := e.createLead(t, token, "Ada", nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("notes", "sent brochure"))
	fw, err := mw.CreateFormFile("file", "brochure.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api/v1/leads/"+lead.LeadID+"/followups", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	var f FollowUpItem
	require.NoError(t, json.Unmarshal(env.Result, &f))
	require.NotNil(t, f.File)
	assert.Equal(t, "lead_followups/lead_"+lead.LeadID+"/brochure.pdf", *f.File)

	status, env := e.do(t, http.MethodPut, "/api/v1/followups/"+f.FollowUpID, token, map[string]string{"notes": "called back"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Result, &f))
	assert.Equal(t, "called back", *f.Notes)
	assert.NotNil(t, f.File)
}

func TestAPI_ExportRoundTrip(t *testing.T) {
	e := newAPIEnv(t)
	token := e.signupAndLogin(t, "alice")
	e.createLead(t, token, "Ada", nil)
	e.createLead(t, token, "Bea", nil)

	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/api/v1/leads/export", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "leads_")

	rows, err := importer.ReadXLSX(resp.Body)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ada", rows[0].FirstName)
	assert.Equal(t, 30, rows[0].Age)
	assert.Equal(t, "Bea", rows[1].FirstName)
}

func TestAPI_DashboardRESTAndGraphQL(t *testing.T) {
	e := newAPIEnv(t)
	token := e.signupAndLogin(t, "alice")
	e.createLead(t, token, "Ada", nil)

	status, env := e.do(t, http.MethodGet, "/api/v1/dashboard?days=7", token, nil)
	require.Equal(t, http.StatusOK, status)
	var dash map[string]any
	require.NoError(t, json.Unmarshal(env.Result, &dash))
	assert.EqualValues(t, 1, dash["total_lead_count"])
	assert.EqualValues(t, 7, dash["days"])

	body, err := json.Marshal(map[string]string{
		"query": `{ dashboard(days: 30) { totalLeadCount totalInPastDays convertedInPastDays } me { username role } }`,
	})
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, e.srv.URL+"/api/v1/graphql", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var gql struct {
		Data struct {
			Dashboard struct {
				TotalLeadCount      int `json:"totalLeadCount"`
				TotalInPastDays     int `json:"totalInPastDays"`
				ConvertedInPastDays int `json:"convertedInPastDays"`
			} `json:"dashboard"`
			Me struct {
				Username string `json:"username"`
				Role     string `json:"role"`
			} `json:"me"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&gql))
	assert.Equal(t, 1, gql.Data.Dashboard.TotalLeadCount)
	assert.Equal(t, 1, gql.Data.Dashboard.TotalInPastDays)
	assert.Equal(t, 0, gql.Data.Dashboard.ConvertedInPastDays)
	assert.Equal(t, "alice", gql.Data.Me.Username)
	assert.Equal(t, "organizer", gql.Data.Me.Role)
}

func TestAPI_LogoutInvalidatesSession(t *testing.T) {
	e := newAPIEnv(t)
	token := e.signupAndLogin(t, "alice")

	status, _ := e.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = e.do(t, http.MethodGet, "/api/v1/leads", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_MetricsAndHealth(t *testing.T) {
	e := newAPIEnv(t)
	status, _ := e.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)

	resp, err := http.Get(e.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), `leadcrm_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/api/v1/leads/{id}/category", routeLabel("/api/v1/leads/0b4e/category"))
	assert.Equal(t, "/api/v1/leads", routeLabel("/api/v1/leads"))
	assert.Equal(t, "/api/v1/followups/{id}", routeLabel("/api/v1/followups/abc"))
}

func (e *apiEnv) doRaw(t *testing.T, method, path, token, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func multipartFile(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAPI_UnauthenticatedBodyIsRejectedBeforeParsing(t *testing.T) {
	e := newAPIEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/leads"},
		{http.MethodPut, "/api/v1/leads/x"},
		{http.MethodPut, "/api/v1/leads/x/assign-agent"},
		{http.MethodPut, "/api/v1/leads/x/category"},
		{http.MethodPost, "/api/v1/leads/x/followups"},
		{http.MethodPut, "/api/v1/followups/x"},
		{http.MethodPost, "/api/v1/categories"},
		{http.MethodPost, "/api/v1/agents"},
	} {
		resp := e.doRaw(t, tc.method, tc.path, "", "application/json", strings.NewReader("{"))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, tc.method+" "+tc.path)
	}

	body, contentType := multipartFile(t, "profile_picture", "me.png", "png")
	resp := e.doRaw(t, http.MethodPost, "/api/v1/leads/x/profile-picture", "", contentType, body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_FileDownloads(t *testing.T) {
	e := newAPIEnv(t)
	token := e.signupAndLogin(t, "alice")
	other := e.signupAndLogin(t, "carol")
	lead := e.createLead(t, token, "Ada", nil)

	body, contentType := multipartFile(t, "file", "brochure.pdf", "%PDF")
	resp := e.doRaw(t, http.MethodPost, "/api/v1/leads/"+lead.LeadID+"/followups", token, contentType, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	var f FollowUpItem
	require.NoError(t, json.Unmarshal(env.Result, &f))

	resp = e.doRaw(t, http.MethodGet, "/api/v1/followups/"+f.FollowUpID+"/file", token, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename=brochure.pdf`)
	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(content))

	resp = e.doRaw(t, http.MethodGet, "/api/v1/followups/"+f.FollowUpID+"/file", other, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = e.doRaw(t, http.MethodGet, "/api/v1/leads/"+lead.LeadID+"/profile-picture", token, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body, contentType = multipartFile(t, "profile_picture", "me.png", "png")
	resp = e.doRaw(t, http.MethodPost, "/api/v1/leads/"+lead.LeadID+"/profile-picture", token, contentType, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.doRaw(t, http.MethodGet, "/api/v1/leads/"+lead.LeadID+"/profile-picture", token, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	content, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "png", string(content))
}

func TestAPI_DotDotUploadIsRejected(t *testing.T) {
	e := newAPIEnv(t)
	token := e.signupAndLogin(t, "alice")
	lead := e.createLead(t, token, "Ada", nil)

	body, contentType := multipartFile(t, "file", "..", "junk")
	resp := e.doRaw(t, http.MethodPost, "/api/v1/leads/"+lead.LeadID+"/followups", token, contentType, body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Contains(t, string(env.Result), `"file"`)

	second := e.createLead(t, token, "Grace", nil)
	body, contentType = multipartFile(t, "file", "ok.txt", "fine")
	resp = e.doRaw(t, http.MethodPost, "/api/v1/leads/"+second.LeadID+"/followups", token, contentType, body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}
