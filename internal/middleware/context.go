package middleware

import (
	"context"

	"github.com/airdroptracker/internal/model"
)

type contextKey string

const (
	sessionKey contextKey = "session"
	tokenKey   contextKey = "session_token"
)

// WithSession кладёт сессию в контекст (используется SessionManager и тестами handler).
func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// GetSession возвращает сессию запроса или nil вне SessionManager.
func GetSession(ctx context.Context) *model.Session {
	s, _ := ctx.Value(sessionKey).(*model.Session)
	return s
}

// GetIdentity возвращает identity аутентифицированной сессии или "".
func GetIdentity(ctx context.Context) string {
	s := GetSession(ctx)
	if s == nil || !s.Authenticated {
		return ""
	}
	return s.Identity
}

// GetSessionToken - подписанный токен текущей сессии (тот же, что в cookie).
func GetSessionToken(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}
