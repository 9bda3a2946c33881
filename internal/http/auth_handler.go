package httpapi

import (
	"net/http"
	"time"

	"leadcrm/internal/service"

	"go.uber.org/zap"
)

// AuthHandler 注册 / 登录 / 登出
type AuthHandler struct {
	auth       *service.AuthService
	cookieName string
	logger     *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, cookieName string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, cookieName: cookieName, logger: logger}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	switch r.URL.Path {
	case "/api/v1/auth/signup":
		h.Signup(w, r)
	case "/api/v1/auth/login":
		h.Login(w, r)
	case "/api/v1/auth/logout":
		h.Logout(w, r)
	default:
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	}
}

// Signup 组织者注册（同时创建组织）
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	user, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(map[string]string{
		"user_id":         user.UserID,
		"username":        user.Username,
		"organization_id": user.Role.OrganizationID(),
	}))
}

// Login 签发会话 token（同时写 cookie）
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readBodyJSON(r, maxJSONBody, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	resp, err := h.auth.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if h.cookieName != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     h.cookieName,
			Value:    resp.Token,
			Path:     "/",
			Expires:  resp.ExpiresAt,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Logout 删除会话
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), sessionToken(r, h.cookieName)); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if h.cookieName != "" {
		http.SetCookie(w, &http.Cookie{
			Name:    h.cookieName,
			Value:   "",
			Path:    "/",
			Expires: time.Unix(0, 0),
			MaxAge:  -1,
		})
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
