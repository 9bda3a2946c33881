package httpapi

import (
	"net/http"

	"leadcrm/internal/service"

	"go.uber.org/zap"
)

const followUpsPrefix = "/api/v1/followups/"

// FollowUpsHandler /api/v1/followups/{id}
type FollowUpsHandler struct {
	followUps *service.FollowUpService
	messages  *service.Messages
	maxUpload int64
	logger    *zap.Logger
}

func NewFollowUpsHandler(followUps *service.FollowUpService, messages *service.Messages, maxUpload int64, logger *zap.Logger) *FollowUpsHandler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &FollowUpsHandler{followUps: followUps, messages: messages, maxUpload: maxUpload, logger: logger}
}

func (h *FollowUpsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireSession(w, r) {
		return
	}
	parts := splitPath(r.URL.Path, followUpsPrefix)
	if len(parts) == 2 && parts[1] == "file" && r.Method == http.MethodGet {
		h.DownloadFile(w, r, parts[0])
		return
	}
	if len(parts) != 1 {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	id := parts[0]
	ctx := r.Context()
	actor := actorFrom(ctx)

	switch r.Method {
	case http.MethodGet:
		f, err := h.followUps.Get(ctx, actor, id)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(toFollowUpItem(f)))
	case http.MethodPut:
		req, cleanup, err := readFollowUpRequest(w, r, h.maxUpload)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		defer cleanup()
		f, err := h.followUps.Update(ctx, actor, id, req)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		flash(ctx, h.messages, h.logger, service.FollowUpUpdatedMessage)
		writeJSON(w, http.StatusOK, Ok(toFollowUpItem(f)))
	case http.MethodDelete:
		f, err := h.followUps.Delete(ctx, actor, id)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		flash(ctx, h.messages, h.logger, service.FollowUpDeletedMessage)
		writeJSON(w, http.StatusOK, Ok(map[string]string{"lead_id": f.LeadID}))
	default:
		methodNotAllowed(w)
	}
}

// DownloadFile 下载跟进附件
func (h *FollowUpsHandler) DownloadFile(w http.ResponseWriter, r *http.Request, followUpID string) {
	rc, name, err := h.followUps.OpenFile(r.Context(), actorFrom(r.Context()), followUpID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	defer rc.Close()
	writeAttachment(w, h.logger, name, rc)
}
