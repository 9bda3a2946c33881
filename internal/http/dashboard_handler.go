package httpapi

import (
	"net/http"

	"leadcrm/internal/service"

	"go.uber.org/zap"
)

// DashboardHandler GET /api/v1/dashboard?days=30 与 /messages
type DashboardHandler struct {
	dashboard *service.DashboardService
	messages  *service.Messages
	logger    *zap.Logger
}

func NewDashboardHandler(dashboard *service.DashboardService, messages *service.Messages, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, messages: messages, logger: logger}
}

// GetDashboard 仪表盘统计
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	days := parseInt(r.URL.Query().Get("days"), service.DefaultDashboardDays)
	resp, err := h.dashboard.Dashboard(r.Context(), actorFrom(r.Context()), days)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// PopMessages returns the session's queued success messages once.
func (h *DashboardHandler) PopMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if actorFrom(ctx) == nil {
		writeJSON(w, http.StatusUnauthorized, Fail("unauthorized"))
		return
	}
	msgs, err := h.messages.Pop(ctx, sessionFrom(ctx))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(msgs))
}
