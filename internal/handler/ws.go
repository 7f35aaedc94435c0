package handler

import (
	"context"
	"net/http"

	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/middleware"
	"github.com/airdroptracker/internal/ws"
	"github.com/gorilla/websocket"
)

// WSHandler открывает канал records_changed для вкладок аутентифицированной сессии.
type WSHandler struct {
	hub       *ws.Hub
	anyOrigin bool
	origins   map[string]struct{}
	upgrader  websocket.Upgrader
}

// NewWSHandler: allowedOrigins - тот же список, что и для CORS.
func NewWSHandler(hub *ws.Hub, allowedOrigins string) *WSHandler {
	h := &WSHandler{hub: hub, origins: map[string]struct{}{}}
	for _, o := range corsOrigins(allowedOrigins) {
		if o == "*" {
			h.anyOrigin = true
		}
		h.origins[o] = struct{}{}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  512,
		WriteBufferSize: 1024,
		CheckOrigin:     h.originAllowed,
	}
	return h
}

// originAllowed: запросы без Origin (не из браузера) пропускаются, браузерные - только из списка.
func (h *WSHandler) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.anyOrigin {
		return true
	}
	_, ok := h.origins[origin]
	return ok
}

func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r.Context())
	if s == nil || !s.Authenticated {
		writeError(w, http.StatusUnauthorized, "sign in to receive live updates")
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту (403 для чужого Origin, 400 для не-WebSocket запроса)
		logger.Warnf("ws upgrade for session %s: %v", logger.MaskSessionID(s.ID), err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := ws.NewClient(h.hub, conn, s.Identity, s.ID)
	client.Start(ctx, cancel)
	h.hub.Register(client)
}
