package httpapi

import (
	"net/http"
	"strings"

	"leadcrm/internal/domain"
	"leadcrm/internal/service"

	"go.uber.org/zap"
)

const leadsPrefix = "/api/v1/leads"

// LeadsHandler 线索 Handler（含跟进记录子路由）
type LeadsHandler struct {
	leads     *service.LeadService
	followUps *service.FollowUpService
	messages  *service.Messages
	maxUpload int64
	logger    *zap.Logger
}

// NewLeadsHandler 创建线索 Handler
func NewLeadsHandler(leads *service.LeadService, followUps *service.FollowUpService, messages *service.Messages, maxUpload int64, logger *zap.Logger) *LeadsHandler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &LeadsHandler{
		leads:     leads,
		followUps: followUps,
		messages:  messages,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

type leadPayload struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Age         int    `json:"age"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Description string `json:"description"`
	AgentID     string `json:"agent_id"`
	CategoryID  string `json:"category_id"`
}

func (p leadPayload) request() service.LeadRequest {
	return service.LeadRequest{
		LeadFields: domain.LeadFields{
			FirstName:   p.FirstName,
			LastName:    p.LastName,
			Age:         p.Age,
			Email:       p.Email,
			PhoneNumber: p.PhoneNumber,
			Description: p.Description,
		},
		AgentID:    p.AgentID,
		CategoryID: p.CategoryID,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *LeadsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireSession(w, r) {
		return
	}

	if r.URL.Path == leadsPrefix {
		switch r.Method {
		case http.MethodGet:
			h.ListLeads(w, r)
		case http.MethodPost:
			h.CreateLead(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	parts := splitPath(r.URL.Path, leadsPrefix+"/")
	switch {
	case len(parts) == 1 && parts[0] == "json" && r.Method == http.MethodGet:
		h.LeadNames(w, r)
	case len(parts) == 1 && parts[0] == "export" && r.Method == http.MethodGet:
		h.ExportLeads(w, r)
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.GetLead(w, r, parts[0])
	case len(parts) == 1 && r.Method == http.MethodPut:
		h.UpdateLead(w, r, parts[0])
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.DeleteLead(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "assign-agent" && r.Method == http.MethodPut:
		h.AssignAgent(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "category" && r.Method == http.MethodPut:
		h.UpdateCategory(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "profile-picture" && r.Method == http.MethodPost:
		h.UploadProfilePicture(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "profile-picture" && r.Method == http.MethodGet:
		h.DownloadProfilePicture(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "followups" && r.Method == http.MethodGet:
		h.ListFollowUps(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "followups" && r.Method == http.MethodPost:
		h.CreateFollowUp(w, r, parts[0])
	default:
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	}
}

// ListLeads 线索列表（?q=搜索 &category_id=）
func (h *LeadsHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.leads.List(r.Context(), actorFrom(r.Context()), service.ListLeadsRequest{
		Search:     q.Get("q"),
		CategoryID: q.Get("category_id"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	out := map[string]any{"leads": toLeadItems(resp.Leads)}
	if resp.Unassigned != nil {
		out["unassigned_leads"] = toLeadItems(resp.Unassigned)
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// CreateLead 创建线索
func (h *LeadsHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var payload leadPayload
	if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	lead, err := h.leads.Create(r.Context(), actorFrom(r.Context()), payload.request())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	flash(r.Context(), h.messages, h.logger, service.LeadCreatedMessage)
	writeJSON(w, http.StatusCreated, Ok(toLeadItem(lead)))
}

// GetLead 线索详情
func (h *LeadsHandler) GetLead(w http.ResponseWriter, r *http.Request, leadID string) {
	lead, err := h.leads.Get(r.Context(), actorFrom(r.Context()), leadID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toLeadItem(lead)))
}

// UpdateLead 更新线索
func (h *LeadsHandler) UpdateLead(w http.ResponseWriter, r *http.Request, leadID string) {
	var payload leadPayload
	if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	lead, err := h.leads.Update(r.Context(), actorFrom(r.Context()), leadID, payload.request())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	flash(r.Context(), h.messages, h.logger, service.LeadUpdatedMessage)
	writeJSON(w, http.StatusOK, Ok(toLeadItem(lead)))
}

// DeleteLead 删除线索
func (h *LeadsHandler) DeleteLead(w http.ResponseWriter, r *http.Request, leadID string) {
	if err := h.leads.Delete(r.Context(), actorFrom(r.Context()), leadID); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	flash(r.Context(), h.messages, h.logger, service.LeadDeletedMessage)
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// AssignAgent 分配 agent
func (h *LeadsHandler) AssignAgent(w http.ResponseWriter, r *http.Request, leadID string) {
	var payload struct {
		AgentID string `json:"agent_id"`
	}
	if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	lead, agent, err := h.leads.AssignAgent(r.Context(), actorFrom(r.Context()), leadID, payload.AgentID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	username := ""
	if agent.User != nil {
		username = agent.User.Username
	}
	flash(r.Context(), h.messages, h.logger, service.AgentAssignedMessage(username, lead.FirstName, lead.LastName))
	writeJSON(w, http.StatusOK, Ok(toLeadItem(lead)))
}

// UpdateCategory 修改线索分类（category_id 为空表示未分类）
func (h *LeadsHandler) UpdateCategory(w http.ResponseWriter, r *http.Request, leadID string) {
	var payload struct {
		CategoryID string `json:"category_id"`
	}
	if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	lead, err := h.leads.UpdateCategory(r.Context(), actorFrom(r.Context()), leadID, payload.CategoryID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toLeadItem(lead)))
}

// UploadProfilePicture multipart 字段 profile_picture
func (h *LeadsHandler) UploadProfilePicture(w http.ResponseWriter, r *http.Request, leadID string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid multipart body"))
		return
	}
	file, header, err := r.FormFile("profile_picture")
	if err != nil {
		writeError(w, h.logger, r, domain.NewValidationError("profile_picture", "No file was submitted."))
		return
	}
	defer file.Close()

	lead, err := h.leads.SetProfilePicture(r.Context(), actorFrom(r.Context()), leadID, header.Filename, file)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	flash(r.Context(), h.messages, h.logger, service.LeadUpdatedMessage)
	writeJSON(w, http.StatusOK, Ok(toLeadItem(lead)))
}

// DownloadProfilePicture 下载线索头像
func (h *LeadsHandler) DownloadProfilePicture(w http.ResponseWriter, r *http.Request, leadID string) {
	rc, name, err := h.leads.OpenProfilePicture(r.Context(), actorFrom(r.Context()), leadID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	defer rc.Close()
	writeAttachment(w, h.logger, name, rc)
}

// LeadNames first_name -> last_name，按调用者范围过滤
func (h *LeadsHandler) LeadNames(w http.ResponseWriter, r *http.Request) {
	names, err := h.leads.NamesJSON(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// ListFollowUps 线索的跟进记录
func (h *LeadsHandler) ListFollowUps(w http.ResponseWriter, r *http.Request, leadID string) {
	items, err := h.followUps.List(r.Context(), actorFrom(r.Context()), leadID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	out := make([]FollowUpItem, 0, len(items))
	for _, f := range items {
		out = append(out, toFollowUpItem(f))
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// CreateFollowUp JSON {notes} 或 multipart（notes + file）
func (h *LeadsHandler) CreateFollowUp(w http.ResponseWriter, r *http.Request, leadID string) {
	req, cleanup, err := readFollowUpRequest(w, r, h.maxUpload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	defer cleanup()

	f, err := h.followUps.Create(r.Context(), actorFrom(r.Context()), leadID, req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	flash(r.Context(), h.messages, h.logger, service.FollowUpCreatedMessage)
	writeJSON(w, http.StatusCreated, Ok(toFollowUpItem(f)))
}

// readFollowUpRequest parses either a JSON body or a multipart form with an
// optional "file" part. cleanup closes the uploaded part.
func readFollowUpRequest(w http.ResponseWriter, r *http.Request, maxUpload int64) (service.FollowUpRequest, func(), error) {
	noop := func() {}
	var req service.FollowUpRequest

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		var payload struct {
			Notes     string `json:"notes"`
			ClearFile bool   `json:"clear_file"`
		}
		if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
			return req, noop, err
		}
		req.Notes = payload.Notes
		req.ClearFile = payload.ClearFile
		return req, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+(1<<20))
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return req, noop, err
	}
	req.Notes = r.FormValue("notes")
	req.ClearFile = r.FormValue("clear_file") == "true"

	file, header, err := r.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			return req, noop, nil
		}
		return req, noop, err
	}
	req.File = &service.Attachment{Filename: header.Filename, Content: file}
	return req, func() { _ = file.Close() }, nil
}
