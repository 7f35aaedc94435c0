package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/airdroptracker/internal/auth"
	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/model"
	"github.com/airdroptracker/internal/storage"
	"github.com/google/uuid"
)

const (
	SessionCookie = "airdrop_session"
	// TokenHeader возвращается при выдаче новой сессии клиентам без cookie.
	TokenHeader   = "X-Session-Token"
)

// SessionManager загружает сессию по токену из cookie или заголовка Authorization: Bearer,
// создаёт новую Anonymous-сессию при отсутствии или невалидном токене и сохраняет
// сессию в store после обработчика, если она новая или изменилась.
type SessionManager struct {
	store        storage.SessionStore
	signer       *auth.Signer
	secureCookie bool
	now          func() time.Time
}

func NewSessionManager(store storage.SessionStore, signer *auth.Signer, secureCookie bool) *SessionManager {
	return &SessionManager{store: store, signer: signer, secureCookie: secureCookie, now: time.Now}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	// Браузерный WebSocket не умеет ставить заголовки.
	return r.URL.Query().Get("token")
}

func (m *SessionManager) load(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}
	sid, err := m.signer.SessionID(token)
	if err != nil {
		logger.Debugf("session token rejected: %v", err)
		return nil, nil
	}
	return m.store.GetSession(ctx, sid)
}

func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		s, err := m.load(r.Context(), token)
		if err != nil {
			logger.Errorf("session load: %v", err)
			http.Error(w, `{"error":"session store unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		created := s == nil
		if created {
			now := m.now().UTC()
			s = &model.Session{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
			token, err = m.signer.Issue(s.ID)
			if err != nil {
				logger.Errorf("session token issue: %v", err)
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    token,
				Path:     "/",
				MaxAge:   int(m.signer.TTL().Seconds()),
				HttpOnly: true,
				Secure:   m.secureCookie,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(TokenHeader, token)
			logger.Debugf("session created id=%s", logger.MaskSessionID(s.ID))
		}

		before := snapshot(s)
		ctx := WithSession(r.Context(), s)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))

		// Сохраняется только новая или изменённая обработчиком сессия.
		if !created && bytes.Equal(before, snapshot(s)) {
			return
		}
		s.UpdatedAt = m.now().UTC()
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
		defer cancel()
		if err := m.store.SaveSession(saveCtx, s, m.signer.TTL()); err != nil {
			logger.Errorf("session save id=%s: %v", logger.MaskSessionID(s.ID), err)
		}
	})
}

func snapshot(s *model.Session) []byte {
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return b
}
