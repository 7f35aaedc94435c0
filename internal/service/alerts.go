package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/model"
	"github.com/airdroptracker/internal/storage"
)

// AlertSender отправляет письмо-сводку.
type AlertSender interface {
	SendAlert(ctx context.Context, to, subject, body string) error
}

// PushNotifier рассылает уведомление на подписки identity и возвращает число доставленных.
type PushNotifier interface {
	Notify(ctx context.Context, identity, title, body string) (int, error)
}

// RunReport - итог обхода аккаунтов.
type RunReport struct {
	Accounts int `json:"accounts"`
	Alerted  int `json:"alerted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

type AlertService struct {
	mailer      AlertSender
	push        PushNotifier
	records     storage.RecordStore
	accounts    AccountStore
	minInterval time.Duration
	now         func() time.Time
}

type AlertOption func(*AlertService)

func WithPush(p PushNotifier) AlertOption {
	return func(a *AlertService) { a.push = p }
}

// WithMinInterval - аккаунты, которым писали позже now-d, при RunAll пропускаются.
func WithMinInterval(d time.Duration) AlertOption {
	return func(a *AlertService) { a.minInterval = d }
}

func WithAlertClock(now func() time.Time) AlertOption {
	return func(a *AlertService) { a.now = now }
}

func NewAlertService(mailer AlertSender, records storage.RecordStore, accounts AccountStore, opts ...AlertOption) *AlertService {
	a := &AlertService{mailer: mailer, records: records, accounts: accounts, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SendDue отправляет сводку по клеймам в пределах horizonDays. Нечего отправлять - 0, nil.
// Сбой письма - ErrDeliveryFailure; сбой push только логируется.
func (a *AlertService) SendDue(ctx context.Context, email, identity string, records []model.Record, horizonDays int) (int, error) {
	due := FindDue(records, horizonDays, a.now())
	if len(due) == 0 {
		return 0, nil
	}
	subject := fmt.Sprintf("Airdrop claims due in the next %d days", horizonDays)
	if err := a.mailer.SendAlert(ctx, email, subject, AlertBody(due, horizonDays)); err != nil {
		logger.Warnf("alerts: email to %s failed: %v", logger.MaskEmail(email), err)
		return len(due), fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}
	if a.push != nil && identity != "" {
		if _, err := a.push.Notify(ctx, identity, subject, pushSummary(due)); err != nil {
			logger.Warnf("alerts: push for %s: %v", logger.MaskEmail(email), err)
		}
	}
	logger.Infof("alerts: %d due claim(s) sent to %s", len(due), logger.MaskEmail(email))
	return len(due), nil
}

// RunAll обходит все аккаунты. Ошибка одного аккаунта не прерывает обход.
func (a *AlertService) RunAll(ctx context.Context, horizonDays int) (RunReport, error) {
	defer logger.DeferLogDuration("alerts.RunAll", time.Now())()
	accounts, err := a.accounts.ListAccounts(ctx)
	if err != nil {
		return RunReport{}, fmt.Errorf("alerts: list accounts: %w", err)
	}
	rep := RunReport{Accounts: len(accounts)}
	now := a.now()
	for _, acc := range accounts {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		if a.minInterval > 0 && acc.LastAlertAt != nil && now.Sub(*acc.LastAlertAt) < a.minInterval {
			rep.Skipped++
			continue
		}
		recs, err := a.records.Load(ctx, acc.Identity)
		if err != nil {
			logger.Errorf("alerts: load records for %s: %v", logger.MaskEmail(acc.Email), err)
			rep.Failed++
			continue
		}
		n, err := a.SendDue(ctx, acc.Email, acc.Identity, recs, horizonDays)
		if err != nil {
			rep.Failed++
			continue
		}
		if n == 0 {
			rep.Skipped++
			continue
		}
		rep.Alerted++
		if err := a.accounts.MarkAlerted(ctx, acc.Identity, now); err != nil {
			logger.Errorf("alerts: mark alerted: %v", err)
		}
	}
	logger.Infof("alerts: run done accounts=%d alerted=%d skipped=%d failed=%d", rep.Accounts, rep.Alerted, rep.Skipped, rep.Failed)
	return rep, nil
}

// AlertBody - текст письма со списком клеймов.
func AlertBody(due []DueRecord, horizonDays int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Airdrop claims due in the next %d days:\n\n", horizonDays)
	for _, d := range due {
		when := fmt.Sprintf("in %d days", d.DaysUntil)
		switch d.DaysUntil {
		case 0:
			when = "today"
		case 1:
			when = "tomorrow"
		}
		fmt.Fprintf(&b, "- %s: %s (%s)\n", d.Record.Protocol, d.Record.ExpectedDate, when)
		if d.Record.Referral != "" {
			fmt.Fprintf(&b, "  Referral: %s\n", d.Record.Referral)
		}
		if d.Record.Tasks != "" {
			fmt.Fprintf(&b, "  Tasks: %s\n", d.Record.Tasks)
		}
	}
	b.WriteString("\nSent by Airdrop Tracker")
	return b.String()
}

func pushSummary(due []DueRecord) string {
	names := make([]string, 0, len(due))
	for _, d := range due {
		names = append(names, d.Record.Protocol)
	}
	return strings.Join(names, ", ")
}

// AlertScheduler периодически вызывает RunAll. Interval <= 0 - планировщик выключен.
type AlertScheduler struct {
	svc         *AlertService
	interval    time.Duration
	horizonDays int
}

func NewAlertScheduler(svc *AlertService, interval time.Duration, horizonDays int) *AlertScheduler {
	return &AlertScheduler{svc: svc, interval: interval, horizonDays: horizonDays}
}

// Run блокируется до отмены ctx.
func (s *AlertScheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		logger.Infof("alerts: scheduler disabled")
		return
	}
	logger.Infof("alerts: scheduler every %s, horizon %d days", s.interval, s.horizonDays)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.svc.RunAll(ctx, s.horizonDays); err != nil {
				logger.Errorf("alerts: run: %v", err)
			}
		}
	}
}
