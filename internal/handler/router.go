package handler

import (
	"net/http"
	"strings"

	"github.com/airdroptracker/internal/config"
	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handlers - обработчики, которые собирает services/tracker. Push и WS могут быть nil.
type Handlers struct {
	Auth    *AuthHandler
	Records *RecordsHandler
	Alerts  *AlertsHandler
	Push    *PushHandler
	Config  *ConfigHandler
	WS      *WSHandler
}

func corsOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// NewRouter собирает HTTP API трекера.
func NewRouter(cfg *config.Config, sessions *middleware.SessionManager, h Handlers) chi.Router {
	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Errorf("config: %v", err)
	}
	r := chi.NewRouter()
	r.Use(middleware.RealIP(trusted))
	r.Use(chimw.Logger)
	r.Use(middleware.RecoverJSON)
	// Не сжимать WebSocket - иначе ResponseWriter не реализует http.Hijacker и upgrade даёт 500.
	r.Use(func(next http.Handler) http.Handler {
		compress := chimw.Compress(5)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			compress.ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{middleware.TokenHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if h.Config != nil {
		r.Get("/api/config", h.Config.GetAppConfig)
		r.Get("/api/push/config", h.Config.GetPushConfig)
	}

	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)
		r.Use(middleware.RateLimitAPI)

		r.Route("/api/auth", func(r chi.Router) {
			r.With(middleware.RateLimitCode).Post("/request-code", h.Auth.RequestCode)
			r.With(middleware.RateLimitCode).Post("/resend-code", h.Auth.ResendCode)
			r.Post("/verify-code", h.Auth.VerifyCode)
			r.Post("/logout", h.Auth.Logout)
			r.Get("/session", h.Auth.Session)
		})

		r.Route("/api/records", func(r chi.Router) {
			r.Get("/", h.Records.List)
			r.Post("/", h.Records.Add)
			r.Put("/", h.Records.ReplaceAll)
			r.Post("/sync", h.Records.Sync)
			r.Get("/stats", h.Records.Stats)
			r.Get("/due", h.Records.Due)
			r.Put("/{index}", h.Records.Update)
			r.Delete("/{index}", h.Records.Delete)
			r.Post("/{index}/reminder", h.Records.Reminder)
		})

		r.Post("/api/alerts/send", h.Alerts.Send)
		if h.Push != nil {
			r.Post("/api/push/subscribe", h.Push.Subscribe)
			r.Delete("/api/push/subscribe", h.Push.Unsubscribe)
		}
		if h.WS != nil {
			r.Get("/ws", h.WS.ServeWS)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.InternalOnly(cfg.InternalSecret))
		r.Post("/internal/alerts/run", h.Alerts.Run)
	})
	return r
}
