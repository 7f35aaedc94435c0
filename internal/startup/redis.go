package startup

import (
	"context"
	"time"

	redisstorage "github.com/airdroptracker/internal/storage/redis"
)

// ConnectRedisWithRetry подключается к Redis (хранилище сессий) с повторами.
func ConnectRedisWithRetry(redisURL string, maxWait time.Duration, logPrefix string) *redisstorage.Client {
	var client *redisstorage.Client
	retryUntil(maxWait, logPrefix, "redis connect", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c, err := redisstorage.New(ctx, redisURL)
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	return client
}
