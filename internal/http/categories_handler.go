package httpapi

import (
	"net/http"

	"leadcrm/internal/service"

	"go.uber.org/zap"
)

const categoriesPrefix = "/api/v1/categories"

// CategoriesHandler 分类 Handler
type CategoriesHandler struct {
	categories *service.CategoryService
	messages   *service.Messages
	logger     *zap.Logger
}

func NewCategoriesHandler(categories *service.CategoryService, messages *service.Messages, logger *zap.Logger) *CategoriesHandler {
	return &CategoriesHandler{categories: categories, messages: messages, logger: logger}
}

type categoryPayload struct {
	Name string `json:"name"`
}

func (h *CategoriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireSession(w, r) {
		return
	}

	ctx := r.Context()
	actor := actorFrom(ctx)

	if r.URL.Path == categoriesPrefix {
		switch r.Method {
		case http.MethodGet:
			resp, err := h.categories.List(ctx, actor)
			if err != nil {
				writeError(w, h.logger, r, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(resp))
		case http.MethodPost:
			var payload categoryPayload
			if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
				writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
				return
			}
			c, err := h.categories.Create(ctx, actor, payload.Name)
			if err != nil {
				writeError(w, h.logger, r, err)
				return
			}
			flash(ctx, h.messages, h.logger, service.CategoryMessage(c.Name, "created"))
			writeJSON(w, http.StatusCreated, Ok(toCategoryView(c)))
		default:
			methodNotAllowed(w)
		}
		return
	}

	parts := splitPath(r.URL.Path, categoriesPrefix+"/")
	if len(parts) != 1 {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}
	id := parts[0]

	switch r.Method {
	case http.MethodGet:
		detail, err := h.categories.Get(ctx, actor, id)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{
			"category": toCategoryView(detail.Category),
			"leads":    toLeadItems(detail.Leads),
		}))
	case http.MethodPut:
		var payload categoryPayload
		if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		c, err := h.categories.Update(ctx, actor, id, payload.Name)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		flash(ctx, h.messages, h.logger, service.CategoryMessage(c.Name, "updated"))
		writeJSON(w, http.StatusOK, Ok(toCategoryView(c)))
	case http.MethodDelete:
		c, err := h.categories.Delete(ctx, actor, id)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		flash(ctx, h.messages, h.logger, service.CategoryMessage(c.Name, "deleted"))
		writeJSON(w, http.StatusOK, Ok[any](nil))
	default:
		methodNotAllowed(w)
	}
}
