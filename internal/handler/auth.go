package handler

import (
	"errors"
	"net/http"

	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/middleware"
	"github.com/airdroptracker/internal/model"
	"github.com/airdroptracker/internal/service"
)

// SessionSockets закрывает живые WebSocket-соединения сессии.
type SessionSockets interface {
	DisconnectSession(identity, sessionID string) int
}

type AuthHandler struct {
	authSvc *service.AuthService
	sockets SessionSockets
}

// NewAuthHandler: sockets может быть nil, если /ws не подключён.
func NewAuthHandler(authSvc *service.AuthService, sockets SessionSockets) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, sockets: sockets}
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Code string `json:"code"`
}

// sessionResponse - состояние входа, которое видит клиент. Код никогда не отдаётся.
type sessionResponse struct {
	State         model.SessionState `json:"state"`
	Email         string             `json:"email,omitempty"`
	Authenticated bool               `json:"authenticated"`
	Message       string             `json:"message,omitempty"`
	Token         string             `json:"token,omitempty"`
	Records       *[]model.Record    `json:"records,omitempty"`
	Unsaved       bool               `json:"unsaved,omitempty"`
	Error         string             `json:"error,omitempty"`
}

func newSessionResponse(s *model.Session) sessionResponse {
	return sessionResponse{State: s.State(), Email: s.Email, Authenticated: s.Authenticated}
}

func (h *AuthHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authSvc.RequestCode(r.Context(), s, req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	resp := newSessionResponse(s)
	resp.Message = "Verification code sent to your email"
	resp.Token = middleware.GetSessionToken(r.Context())
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req emailRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authSvc.Resend(r.Context(), s, req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	resp := newSessionResponse(s)
	resp.Message = "A new verification code has been sent"
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.authSvc.Verify(r.Context(), s, req.Code)
	if err != nil && !errors.Is(err, service.ErrStoreUnavailable) {
		writeServiceError(w, err)
		return
	}
	resp := newSessionResponse(s)
	resp.Token = middleware.GetSessionToken(r.Context())
	// после входа коллекция отдаётся всегда, пустая - как []
	records := s.Records
	if records == nil {
		records = []model.Record{}
	}
	resp.Records = &records
	if err != nil {
		// вход состоялся, но записи не загрузились
		logger.Warnf("verify-code: %s: %v", logger.MaskEmail(s.Email), err)
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	identity := s.Identity
	h.authSvc.Logout(s)
	if h.sockets != nil && identity != "" {
		h.sockets.DisconnectSession(identity, s.ID)
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}
