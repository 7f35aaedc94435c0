package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MaxSubscriptions - лимит подписок Web Push на identity; лишние (самые старые) удаляются.
const MaxSubscriptions = 10

type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

// SaveSubscription добавляет подписку или обновляет ключи существующей (по endpoint).
func (r *SubscriptionRepository) SaveSubscription(ctx context.Context, identity string, sub model.PushSubscription) error {
	defer logger.DeferLogDuration("subscription.Save", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("subscriptionRepo.Save begin: %w", err)
	}
	defer tx.Rollback(ctx)
	_, err = tx.Exec(ctx,
		`INSERT INTO push_subscriptions (identity, endpoint, p256dh, auth, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (identity, endpoint) DO UPDATE SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth`,
		identity, sub.Endpoint, sub.P256dh, sub.Auth,
	)
	if err != nil {
		return fmt.Errorf("subscriptionRepo.Save: %w", err)
	}
	_, err = tx.Exec(ctx,
		`DELETE FROM push_subscriptions WHERE identity = $1 AND endpoint NOT IN (
		   SELECT endpoint FROM push_subscriptions WHERE identity = $1 ORDER BY created_at DESC LIMIT $2)`,
		identity, MaxSubscriptions,
	)
	if err != nil {
		return fmt.Errorf("subscriptionRepo.Save trim: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("subscriptionRepo.Save commit: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) ListSubscriptions(ctx context.Context, identity string) ([]model.PushSubscription, error) {
	defer logger.DeferLogDuration("subscription.List", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT endpoint, p256dh, auth, created_at FROM push_subscriptions WHERE identity = $1 ORDER BY created_at`,
		identity,
	)
	if err != nil {
		return nil, fmt.Errorf("subscriptionRepo.List: %w", err)
	}
	defer rows.Close()
	var out []model.PushSubscription
	for rows.Next() {
		var s model.PushSubscription
		if err := rows.Scan(&s.Endpoint, &s.P256dh, &s.Auth, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("subscriptionRepo.List scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SubscriptionRepository) DeleteSubscription(ctx context.Context, identity, endpoint string) error {
	defer logger.DeferLogDuration("subscription.Delete", time.Now())()
	_, err := r.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE identity = $1 AND endpoint = $2`, identity, endpoint)
	if err != nil {
		return fmt.Errorf("subscriptionRepo.Delete: %w", err)
	}
	return nil
}
