package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Dias221467/Chat_Manager/internal/apperrors"
	"github.com/Dias221467/Chat_Manager/internal/models"
	"github.com/Dias221467/Chat_Manager/pkg/logger"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionResolver turns a bearer token into a session.
type SessionResolver interface {
	CurrentSession(ctx context.Context, token string) (*models.Session, error)
}

// ErrorWriter renders an error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// AuthMiddleware requires a valid session. The token comes from the
// Authorization header, or from the token query parameter for WebSocket
// upgrades where browsers cannot set headers.
func AuthMiddleware(resolver SessionResolver, writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				logger.Log.WithField("path", r.URL.Path).Warn("Missing session token")
				writeError(w, r, apperrors.Auth(apperrors.CodeInvalidToken, "missing session token"))
				return
			}

			session, err := resolver.CurrentSession(r.Context(), token)
			if err != nil {
				logger.Log.WithError(err).WithField("path", r.URL.Path).Warn("Rejected session token")
				writeError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// WithSession stores the caller's session in ctx.
func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// GetSessionFromContext returns the session set by AuthMiddleware, or nil.
func GetSessionFromContext(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionContextKey).(*models.Session)
	return session
}
