package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/airdroptracker/internal/config"
	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/push"
	"github.com/airdroptracker/internal/repository"
	"github.com/airdroptracker/internal/service"
	"github.com/airdroptracker/internal/storage"
	"github.com/airdroptracker/internal/storage/memory"
	"github.com/airdroptracker/internal/storage/s3sheet"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Stores - хранилища, выбранные по RECORD_STORE. Аккаунты и push-подписки живут в Postgres,
// кроме backend=memory, где всё в памяти процесса.
type Stores struct {
	Pool          *pgxpool.Pool
	Records       storage.RecordStore
	Accounts      service.AccountStore
	Subscriptions push.SubscriptionStore
	// Memory заполнен только для backend=memory (его же удобно использовать как SessionStore).
	Memory        *memory.Client
}

// OpenStores подключает хранилища. migrate - применить миграции перед использованием Postgres.
func OpenStores(ctx context.Context, cfg *config.Config, migrate bool, logPrefix string) (*Stores, error) {
	if cfg.Store.Backend == "memory" {
		mem := memory.New()
		logger.Infof("%srecord store: memory (data is lost on restart)", logPrefix)
		return &Stores{Records: mem, Accounts: mem, Subscriptions: mem, Memory: mem}, nil
	}

	poolCfg, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool := ConnectDBWithRetry(poolCfg, 60*time.Second, logPrefix)
	if migrate {
		if err := RunMigrations(ctx, cfg.DatabaseURL()); err != nil {
			pool.Close()
			return nil, err
		}
	}
	s := &Stores{
		Pool:          pool,
		Accounts:      repository.NewAccountRepository(pool),
		Subscriptions: repository.NewSubscriptionRepository(pool),
	}
	switch cfg.Store.Backend {
	case "s3":
		st, err := s3sheet.New(ctx, cfg.Store.S3)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("s3 record store: %w", err)
		}
		s.Records = st
		logger.Infof("%srecord store: s3 bucket %s", logPrefix, cfg.Store.S3.Bucket)
	default:
		s.Records = repository.NewRecordRepository(pool)
		logger.Infof("%srecord store: postgres", logPrefix)
	}
	return s, nil
}

func (s *Stores) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}
