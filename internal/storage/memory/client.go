// Package memory - хранилище в памяти процесса для -dev и тестов: сессии, записи, аккаунты, подписки.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/airdroptracker/internal/model"
)

const maxSubscriptions = 10

type item struct {
	val []byte
	exp time.Time
}

type Client struct {
	mu       sync.RWMutex
	sessions map[string]item
	records  map[string][]model.Record
	accounts map[string]model.Account
	subs     map[string][]model.PushSubscription
}

func New() *Client {
	return &Client{
		sessions: make(map[string]item),
		records:  make(map[string][]model.Record),
		accounts: make(map[string]model.Account),
		subs:     make(map[string][]model.PushSubscription),
	}
}

func (c *Client) Close() error { return nil }

// Сессии хранятся в JSON, как в Redis.

func (c *Client) GetSession(ctx context.Context, id string) (*model.Session, error) {
	c.mu.RLock()
	v, ok := c.sessions[id]
	c.mu.RUnlock()
	if !ok || time.Now().After(v.exp) {
		return nil, nil
	}
	var s model.Session
	if err := json.Unmarshal(v.val, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) SaveSession(ctx context.Context, s *model.Session, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[s.ID] = item{val: data, exp: time.Now().Add(ttl)}
	return nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, id)
	return nil
}

// Load возвращает копию коллекции identity (пустую, если записей нет).
func (c *Client) Load(ctx context.Context, identity string) ([]model.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := model.CloneRecords(c.records[identity])
	if out == nil {
		out = []model.Record{}
	}
	return out, nil
}

// Save заменяет коллекцию identity целиком.
func (c *Client) Save(ctx context.Context, identity string, records []model.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[identity] = model.CloneRecords(records)
	return nil
}

func (c *Client) UpsertAccount(ctx context.Context, identity, email string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[identity]
	if !ok {
		a = model.Account{Identity: identity, CreatedAt: at}
	}
	a.Email = email
	a.LastLoginAt = at
	c.accounts[identity] = a
	return nil
}

func (c *Client) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.accounts {
		if a.Email == email {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

// ListAccounts возвращает аккаунты в порядке создания.
func (c *Client) ListAccounts(ctx context.Context) ([]model.Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Account, 0, len(c.accounts))
	for _, a := range c.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Identity < out[j].Identity
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (c *Client) MarkAlerted(ctx context.Context, identity string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[identity]
	if !ok {
		return nil
	}
	a.LastAlertAt = &at
	c.accounts[identity] = a
	return nil
}

// SaveSubscription добавляет или обновляет подписку; больше maxSubscriptions - вытесняется самая старая.
func (c *Client) SaveSubscription(ctx context.Context, identity string, sub model.PushSubscription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.subs[identity]
	for i := range list {
		if list[i].Endpoint == sub.Endpoint {
			list[i].P256dh, list[i].Auth = sub.P256dh, sub.Auth
			return nil
		}
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	list = append(list, sub)
	if len(list) > maxSubscriptions {
		list = list[len(list)-maxSubscriptions:]
	}
	c.subs[identity] = list
	return nil
}

func (c *Client) ListSubscriptions(ctx context.Context, identity string) ([]model.PushSubscription, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.PushSubscription(nil), c.subs[identity]...), nil
}

func (c *Client) DeleteSubscription(ctx context.Context, identity, endpoint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.subs[identity]
	kept := list[:0]
	for _, s := range list {
		if s.Endpoint != endpoint {
			kept = append(kept, s)
		}
	}
	c.subs[identity] = kept
	return nil
}
