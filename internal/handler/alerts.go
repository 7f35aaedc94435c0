package handler

import (
	"fmt"
	"net/http"

	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/service"
)

type AlertsHandler struct {
	alerts         *service.AlertService
	defaultHorizon int
}

func NewAlertsHandler(alerts *service.AlertService, defaultHorizon int) *AlertsHandler {
	if defaultHorizon <= 0 {
		defaultHorizon = 7
	}
	return &AlertsHandler{alerts: alerts, defaultHorizon: defaultHorizon}
}

func (h *AlertsHandler) horizon(w http.ResponseWriter, r *http.Request) (int, bool) {
	n := queryInt(r, "horizon", h.defaultHorizon)
	if n < 0 {
		writeError(w, http.StatusBadRequest, "horizon must be >= 0")
		return 0, false
	}
	return n, true
}

// Send отправляет текущему пользователю письмо о клеймах в пределах горизонта.
func (h *AlertsHandler) Send(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	if !s.Authenticated {
		writeServiceError(w, service.ErrNotAuthenticated)
		return
	}
	horizon, ok := h.horizon(w, r)
	if !ok {
		return
	}
	n, err := h.alerts.SendDue(r.Context(), s.Email, s.Identity, s.Records, horizon)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	msg := fmt.Sprintf("Alert sent for %d upcoming airdrop(s)", n)
	if n == 0 {
		msg = fmt.Sprintf("No upcoming airdrops in the next %d days", horizon)
	}
	writeJSON(w, http.StatusOK, map[string]any{"sent": n > 0, "due": n, "message": msg})
}

// Run - обход всех аккаунтов (для внешнего cron), доступен только из приватной сети.
func (h *AlertsHandler) Run(w http.ResponseWriter, r *http.Request) {
	horizon, ok := h.horizon(w, r)
	if !ok {
		return
	}
	rep, err := h.alerts.RunAll(r.Context(), horizon)
	if err != nil {
		logger.Errorf("internal alerts run: %v", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
