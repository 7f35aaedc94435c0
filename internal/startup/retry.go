package startup

import (
	"os"
	"time"

	"github.com/airdroptracker/internal/logger"
)

// retryUntil вызывает attempt с экспоненциальной паузой (2s, 4s, ... до 30s), пока не получится
// или не истечёт maxWait. Тогда процесс завершается: без хранилища сервис не стартует.
func retryUntil(maxWait time.Duration, logPrefix, what string, attempt func() error) {
	deadline := time.Now().Add(maxWait)
	backoff := 2 * time.Second
	for {
		err := attempt()
		if err == nil {
			return
		}
		if time.Now().After(deadline) {
			logger.Errorf("%s%s (gave up after %v): %v", logPrefix, what, maxWait, err)
			logger.Flush(time.Second)
			os.Exit(1)
		}
		logger.Errorf("%s%s failed, retry in %v: %v", logPrefix, what, backoff, err)
		time.Sleep(backoff)
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}
