package handler

import (
	"net/http"

	"github.com/airdroptracker/internal/config"
	"github.com/airdroptracker/internal/push"
)

// ConfigHandler отдаёт публичные параметры конфигурации (без авторизации).
type ConfigHandler struct {
	cfg  *config.Config
	push *push.Sender
}

func NewConfigHandler(cfg *config.Config, sender *push.Sender) *ConfigHandler {
	return &ConfigHandler{cfg: cfg, push: sender}
}

// GetAppConfig - что включено на сервере: календарь, горизонт алертов.
func (h *ConfigHandler) GetAppConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"calendar_enabled":   h.cfg.Calendar.Enabled,
		"alerts_enabled":     h.cfg.Alerts.Enabled,
		"alert_horizon_days": h.cfg.Alerts.HorizonDays,
	})
}

// GetPushConfig возвращает публичный VAPID-ключ для подписки на пуши (если включены).
func (h *ConfigHandler) GetPushConfig(w http.ResponseWriter, r *http.Request) {
	if h.push == nil || h.push.PublicKey() == "" {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":          true,
		"vapid_public_key": h.push.PublicKey(),
	})
}
