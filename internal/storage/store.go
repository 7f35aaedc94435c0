package storage

import (
	"context"
	"time"

	"github.com/airdroptracker/internal/model"
)

// SessionStore - хранилище сессий между запросами (ключ - ID сессии из токена).
// Реализации: redis.Client, memory.Client (для -dev без Redis).
type SessionStore interface {
	// GetSession возвращает nil, nil, если сессии нет или она истекла.
	GetSession(ctx context.Context, id string) (*model.Session, error)
	SaveSession(ctx context.Context, s *model.Session, ttl time.Duration) error
	DeleteSession(ctx context.Context, id string) error
	Close() error
}

// RecordStore - внешнее хранилище записей, разбитое по identity.
// Save заменяет всю коллекцию identity и не трогает коллекции других identity.
// Реализации: repository.RecordRepository (Postgres), s3sheet.Store, memory.Client.
type RecordStore interface {
	Load(ctx context.Context, identity string) ([]model.Record, error)
	Save(ctx context.Context, identity string, records []model.Record) error
}
