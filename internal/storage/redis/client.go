package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/airdroptracker/internal/model"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

// NewFromClient оборачивает готовый клиент (тесты, общий пул).
func NewFromClient(cli *redis.Client) *Client {
	return &Client{cli: cli}
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// GetSession читает сессию session:{id}. Нет ключа - nil, nil.
func (c *Client) GetSession(ctx context.Context, id string) (*model.Session, error) {
	data, err := c.cli.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("redis: decode session: %w", err)
	}
	return &s, nil
}

// SaveSession записывает сессию целиком, TTL продлевается при каждом сохранении.
func (c *Client) SaveSession(ctx context.Context, s *model.Session, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("redis: encode session: %w", err)
	}
	return c.cli.Set(ctx, sessionKeyPrefix+s.ID, data, ttl).Err()
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.cli.Del(ctx, sessionKeyPrefix+id).Err()
}

// FlushDB очищает текущую БД Redis (сброс всех сессий).
func (c *Client) FlushDB(ctx context.Context) error {
	return c.cli.FlushDB(ctx).Err()
}
