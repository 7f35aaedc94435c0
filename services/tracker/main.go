package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/airdroptracker/internal/auth"
	"github.com/airdroptracker/internal/calendar"
	"github.com/airdroptracker/internal/cipher"
	"github.com/airdroptracker/internal/config"
	"github.com/airdroptracker/internal/email"
	"github.com/airdroptracker/internal/handler"
	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/middleware"
	"github.com/airdroptracker/internal/push"
	"github.com/airdroptracker/internal/service"
	"github.com/airdroptracker/internal/startup"
	"github.com/airdroptracker/internal/storage"
	"github.com/airdroptracker/internal/storage/memory"
	"github.com/airdroptracker/internal/ws"
)

func fatal(format string, v ...any) {
	logger.Errorf(format, v...)
	logger.Flush(time.Second)
	os.Exit(1)
}

func main() {
	logger.SetPrefix("tracker")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL and in-memory sessions (no external services required)")
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	flag.Parse()

	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	logger.Info("starting airdrop tracker")

	production := strings.EqualFold(os.Getenv("APP_ENV"), "production")
	if problems := cfg.Validate(production); len(problems) > 0 {
		for _, p := range problems {
			logger.Errorf("config: %s", p)
		}
		if production {
			fatal("refusing to start with an invalid production config")
		}
	}

	if *dev && cfg.Store.Backend != "memory" {
		e := startup.DevEmbeddedPostgres()
		db, err := startup.StartEmbeddedPostgres(e)
		if err != nil {
			fatal("embedded postgres: %v", err)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := db.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
		cfg.Database.URL = e.URL()
	}

	ctx := context.Background()
	stores, err := startup.OpenStores(ctx, cfg, true, "")
	if err != nil {
		fatal("stores: %v", err)
	}
	defer stores.Close()
	if *migrateOnly {
		return
	}

	var sessions storage.SessionStore
	switch {
	case stores.Memory != nil:
		sessions = stores.Memory
	case *dev || cfg.Redis.URL == "":
		logger.Info("sessions: in-memory (set REDIS_URL to keep sessions across restarts)")
		sessions = memory.New()
	default:
		sessions = startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second, "")
		logger.Info("sessions: redis")
	}
	defer sessions.Close()

	fieldCipher := cipher.Disabled()
	if cfg.Cipher.Seed != "" {
		fieldCipher, err = cipher.New(cipher.SeedKeyProvider{Seed: cfg.Cipher.Seed, Salt: cfg.Cipher.Salt})
		if err != nil {
			fatal("wallet cipher: %v", err)
		}
		logger.Info("wallet encryption enabled")
	}

	mailer := email.NewSender(&cfg.SMTP)

	hubCtx, hubCancel := context.WithCancel(ctx)
	hub := ws.NewHub(0)
	var bgWg sync.WaitGroup
	bgWg.Add(1)
	go func() {
		defer bgWg.Done()
		hub.Run(hubCtx)
	}()

	recordOpts := []service.RecordOption{service.WithRecordCipher(fieldCipher), service.WithNotifier(hub)}
	if cfg.Calendar.Enabled {
		cal, err := calendar.New(ctx, cfg.Calendar)
		if err != nil {
			logger.Errorf("calendar disabled: %v", err)
		} else {
			recordOpts = append(recordOpts, service.WithReminder(cal, cfg.Calendar.InviteAttendee))
			logger.Info("calendar reminders enabled")
		}
	}

	var pushSender *push.Sender
	if keys, err := push.EnsureVAPIDKeys(cfg.Push.KeysFile); err != nil {
		logger.Errorf("push disabled: %v", err)
	} else {
		pushSender = push.NewSender(stores.Subscriptions, keys, cfg.Push.Subject)
	}

	authSvc := service.NewAuthService(mailer, stores.Records,
		service.WithAccounts(stores.Accounts), service.WithCipher(fieldCipher))
	recordSvc := service.NewRecordService(stores.Records, recordOpts...)
	alertOpts := []service.AlertOption{service.WithMinInterval(cfg.Alerts.MinInterval)}
	if pushSender != nil {
		alertOpts = append(alertOpts, service.WithPush(pushSender))
	}
	alertSvc := service.NewAlertService(mailer, stores.Records, stores.Accounts, alertOpts...)

	if cfg.Alerts.Enabled {
		sched := service.NewAlertScheduler(alertSvc, cfg.Alerts.ScanInterval, cfg.Alerts.HorizonDays)
		bgWg.Add(1)
		go func() {
			defer bgWg.Done()
			sched.Run(hubCtx)
		}()
	}

	handlers := handler.Handlers{
		Auth:    handler.NewAuthHandler(authSvc, hub),
		Records: handler.NewRecordsHandler(recordSvc, cfg.Alerts.HorizonDays),
		Alerts:  handler.NewAlertsHandler(alertSvc, cfg.Alerts.HorizonDays),
		Config:  handler.NewConfigHandler(cfg, pushSender),
		WS:      handler.NewWSHandler(hub, cfg.CORSAllowedOrigins),
	}
	if pushSender != nil {
		handlers.Push = handler.NewPushHandler(pushSender)
	}
	signer := auth.NewSigner(cfg.Session.Secret, cfg.Session.TTL)
	r := handler.NewRouter(cfg, middleware.NewSessionManager(sessions, signer, cfg.Session.CookieSecure), handlers)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			hubCancel()
			fatal("server error: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	bgWg.Wait()
	logger.Info("hub and scheduler stopped")
	srvWg.Wait()
	logger.Flush(2 * time.Second)
}
