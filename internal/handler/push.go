package handler

import (
	"errors"
	"net/http"

	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/middleware"
	"github.com/airdroptracker/internal/push"
	"github.com/airdroptracker/internal/service"
)

// PushHandler обрабатывает подписку на пуш-уведомления (нужна аутентифицированная сессия).
type PushHandler struct {
	sender *push.Sender
}

func NewPushHandler(sender *push.Sender) *PushHandler {
	return &PushHandler{sender: sender}
}

// SubscribeRequest - тело от фронта (subscription из PushManager.getSubscription()).
type SubscribeRequest struct {
	Subscription push.Subscription `json:"subscription"`
}

type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == "" {
		writeServiceError(w, service.ErrNotAuthenticated)
		return
	}
	var req SubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.sender.Subscribe(r.Context(), identity, req.Subscription); err != nil {
		if errors.Is(err, push.ErrInvalidSubscription) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Errorf("push subscribe: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == "" {
		writeServiceError(w, service.ErrNotAuthenticated)
		return
	}
	var req UnsubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint required")
		return
	}
	if err := h.sender.Unsubscribe(r.Context(), identity, req.Endpoint); err != nil {
		logger.Errorf("push unsubscribe: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to unsubscribe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
