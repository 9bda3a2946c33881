package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"leadcrm/internal/domain"
	"leadcrm/internal/service"

	"go.uber.org/zap"
)

type ctxKey int

const (
	actorKey ctxKey = iota
	sessionKey
)

// Authenticator resolves a session token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*service.Actor, error)
}

// SessionMiddleware attaches the actor for a Bearer token or session cookie.
// Requests without a valid session pass through with no actor; services answer
// ErrUnauthorized for them.
func SessionMiddleware(auth Authenticator, cookieName string, logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r, cookieName)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		actor, err := auth.Authenticate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, domain.ErrUnauthorized) {
				logger.Warn("Session lookup failed", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), actorKey, actor)
		ctx = context.WithValue(ctx, sessionKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(strings.ToLower(h), "bearer ") {
			return strings.TrimSpace(h[len("bearer "):])
		}
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}

func actorFrom(ctx context.Context) *service.Actor {
	a, _ := ctx.Value(actorKey).(*service.Actor)
	return a
}

func sessionFrom(ctx context.Context) string {
	s, _ := ctx.Value(sessionKey).(string)
	return s
}

// requireSession writes 401 when the request carries no valid session.
// Handlers call it before touching the body.
func requireSession(w http.ResponseWriter, r *http.Request) bool {
	if actorFrom(r.Context()) == nil {
		writeJSON(w, http.StatusUnauthorized, Fail("unauthorized"))
		return false
	}
	return true
}
