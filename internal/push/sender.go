package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/model"
)

// ErrInvalidSubscription - в подписке нет endpoint или ключей.
var ErrInvalidSubscription = errors.New("subscription.endpoint and subscription.keys required")

// Subscription - подписка в формате PushManager.getSubscription() браузера.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// SubscriptionStore - подписки identity (Postgres или память).
type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, identity string, sub model.PushSubscription) error
	ListSubscriptions(ctx context.Context, identity string) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, identity, endpoint string) error
}

// sendNotification подменяется в тестах.
var sendNotification = webpush.SendNotificationWithContext

// Sender хранит подписки и рассылает уведомления напрямую через Web Push.
type Sender struct {
	store   SubscriptionStore
	keys    *VAPIDKeys
	subject string
}

func NewSender(store SubscriptionStore, keys *VAPIDKeys, subject string) *Sender {
	return &Sender{store: store, keys: keys, subject: subject}
}

// PublicKey - VAPID public key для фронта.
func (s *Sender) PublicKey() string {
	if s.keys == nil {
		return ""
	}
	return s.keys.PublicKey
}

func (s *Sender) Subscribe(ctx context.Context, identity string, sub Subscription) error {
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return ErrInvalidSubscription
	}
	return s.store.SaveSubscription(ctx, identity, model.PushSubscription{
		Endpoint: sub.Endpoint, P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth,
	})
}

func (s *Sender) Unsubscribe(ctx context.Context, identity, endpoint string) error {
	return s.store.DeleteSubscription(ctx, identity, strings.TrimSpace(endpoint))
}

// Notify отправляет уведомление на все подписки identity. Подписки, на которые push-сервис
// ответил 404/410, удаляются. Возвращает число принятых уведомлений.
func (s *Sender) Notify(ctx context.Context, identity, title, body string) (int, error) {
	if s.keys == nil {
		return 0, nil
	}
	subs, err := s.store.ListSubscriptions(ctx, identity)
	if err != nil {
		return 0, fmt.Errorf("push: list subscriptions: %w", err)
	}
	payload, err := json.Marshal(map[string]any{"title": title, "body": body, "data": map[string]string{"url": "/"}})
	if err != nil {
		return 0, err
	}
	opts := &webpush.Options{
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.keys.PublicKey,
		VAPIDPrivateKey: s.keys.PrivateKey,
		TTL:             24 * 3600,
	}
	sent := 0
	for _, sub := range subs {
		wpSub := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}
		resp, err := sendNotification(ctx, payload, wpSub, opts)
		if err != nil {
			logger.Errorf("push: send %s: %v", sub.Endpoint[:min(50, len(sub.Endpoint))], err)
			continue
		}
		resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
			if err := s.store.DeleteSubscription(ctx, identity, sub.Endpoint); err != nil {
				logger.Errorf("push: remove expired subscription: %v", err)
			}
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			sent++
		default:
			logger.Warnf("push: %s answered %d", sub.Endpoint[:min(50, len(sub.Endpoint))], resp.StatusCode)
		}
	}
	return sent, nil
}
