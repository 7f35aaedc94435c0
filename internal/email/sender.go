package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/airdroptracker/internal/config"
)

// ErrNotConfigured - SMTP не настроен (нет логина/пароля).
var ErrNotConfigured = errors.New("email: SMTP is not configured")

// sendMail подменяется в тестах.
var sendMail = smtp.SendMail

type Sender struct {
	cfg *config.SMTPConfig
}

func NewSender(cfg *config.SMTPConfig) *Sender {
	return &Sender{cfg: cfg}
}

// SendCode отправляет одноразовый код входа.
func (s *Sender) SendCode(ctx context.Context, to, code string) error {
	body := fmt.Sprintf("Your Airdrop Tracker login code: %s\n\nThe code is valid for 10 minutes.\nIf you did not request it, ignore this email.", code)
	return s.send(ctx, to, "Your Airdrop Tracker login code", body)
}

// SendAlert отправляет письмо с произвольной темой (сводка по клеймам).
func (s *Sender) SendAlert(ctx context.Context, to, subject, body string) error {
	return s.send(ctx, to, subject, body)
}

func (s *Sender) send(ctx context.Context, to, subject, body string) error {
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return ErrNotConfigured
	}
	to = strings.TrimSpace(to)
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("email: invalid recipient %q", to)
	}
	from := s.cfg.FromEmail
	if from == "" {
		from = s.cfg.Username
	}
	msg := buildMessage(s.cfg.FromName, from, to, subject, body, time.Now())
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	done := make(chan error, 1)
	go func() { done <- sendMail(addr, auth, from, []string{to}, msg) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func buildMessage(fromName, from, to, subject, body string, now time.Time) []byte {
	var buf bytes.Buffer
	buf.WriteString("From: " + mime.QEncoding.Encode("utf-8", fromName) + " <" + from + ">\r\n")
	buf.WriteString("To: " + to + "\r\n")
	buf.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	buf.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return buf.Bytes()
}

// SendTest отправляет тестовое письмо на to (код TEST-xxxx) для проверки SMTP.
func (s *Sender) SendTest(ctx context.Context, to string) error {
	code := fmt.Sprintf("TEST-%d", time.Now().Unix()%10000)
	return s.SendCode(ctx, to, code)
}
