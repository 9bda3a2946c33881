package httpapi

import (
	"net/http"

	"leadcrm/internal/service"

	"go.uber.org/zap"
)

const agentsPrefix = "/api/v1/agents"

// AgentsHandler agent 管理 Handler
type AgentsHandler struct {
	agents   *service.AgentService
	messages *service.Messages
	logger   *zap.Logger
}

func NewAgentsHandler(agents *service.AgentService, messages *service.Messages, logger *zap.Logger) *AgentsHandler {
	return &AgentsHandler{agents: agents, messages: messages, logger: logger}
}

type agentPayload struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

func (h *AgentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireSession(w, r) {
		return
	}

	ctx := r.Context()
	actor := actorFrom(ctx)

	if r.URL.Path == agentsPrefix {
		switch r.Method {
		case http.MethodGet:
			agents, err := h.agents.List(ctx, actor)
			if err != nil {
				writeError(w, h.logger, r, err)
				return
			}
			items := make([]AgentItem, 0, len(agents))
			for _, a := range agents {
				items = append(items, toAgentItem(a))
			}
			writeJSON(w, http.StatusOK, Ok(items))
		case http.MethodPost:
			var p agentPayload
			if err := readBodyJSON(r, maxJSONBody, &p); err != nil {
				writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
				return
			}
			a, err := h.agents.Invite(ctx, actor, service.InviteAgentRequest{
				Username:  p.Username,
				Email:     p.Email,
				FirstName: p.FirstName,
				LastName:  p.LastName,
				Password:  p.Password,
			})
			if err != nil {
				writeError(w, h.logger, r, err)
				return
			}
			item := toAgentItem(a)
			flash(ctx, h.messages, h.logger, service.AgentMessage(item.Username, "invited"))
			writeJSON(w, http.StatusCreated, Ok(item))
		default:
			methodNotAllowed(w)
		}
		return
	}

	parts := splitPath(r.URL.Path, agentsPrefix+"/")
	if len(parts) != 1 {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	id := parts[0]

	switch r.Method {
	case http.MethodGet:
		a, err := h.agents.Get(ctx, actor, id)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(toAgentItem(a)))
	case http.MethodPut:
		var p agentPayload
		if err := readBodyJSON(r, maxJSONBody, &p); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		a, err := h.agents.Update(ctx, actor, id, service.AgentProfileRequest{
			Email:     p.Email,
			FirstName: p.FirstName,
			LastName:  p.LastName,
		})
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		flash(ctx, h.messages, h.logger, service.AgentMessage(a.User.Username, "updated"))
		writeJSON(w, http.StatusOK, Ok(toAgentItem(a)))
	case http.MethodDelete:
		a, err := h.agents.Delete(ctx, actor, id)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		item := toAgentItem(a)
		flash(ctx, h.messages, h.logger, service.AgentMessage(item.Username, "deleted"))
		writeJSON(w, http.StatusOK, Ok[any](nil))
	default:
		methodNotAllowed(w)
	}
}
