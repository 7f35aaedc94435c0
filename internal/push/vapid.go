package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/airdroptracker/internal/logger"
)

// VAPIDKeys - ключи, которыми подписываются напоминания о клеймах. Подписки браузеров
// привязаны к PublicKey, поэтому пара генерируется один раз и дальше только читается.
type VAPIDKeys struct {
	PublicKey  string    `json:"public_key"`
	PrivateKey string    `json:"private_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// ErrCorruptKeys - файл ключей есть, но прочитать пару из него нельзя. Такой файл не перезаписывается.
var ErrCorruptKeys = errors.New("push: vapid keys file is corrupt")

// EnsureVAPIDKeys читает пару из path или, если файла ещё нет, создаёт её.
func EnsureVAPIDKeys(path string) (*VAPIDKeys, error) {
	if path == "" {
		return nil, errors.New("push: vapid keys path is empty")
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var keys VAPIDKeys
		if err := json.Unmarshal(data, &keys); err != nil || keys.PublicKey == "" || keys.PrivateKey == "" {
			return nil, fmt.Errorf("%w: %s", ErrCorruptKeys, path)
		}
		return &keys, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("push: read vapid keys: %w", err)
	}

	pub, priv, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return nil, fmt.Errorf("push: generate vapid keys: %w", err)
	}
	keys := &VAPIDKeys{PublicKey: pub, PrivateKey: priv, CreatedAt: time.Now().UTC()}
	if err := writeKeys(path, keys); err != nil {
		logger.Warnf("push: keys for this run only, saving to %s failed: %v", path, err)
		return keys, nil
	}
	logger.Infof("push: new vapid keys stored in %s, existing subscriptions must re-subscribe", path)
	return keys, nil
}

// writeKeys пишет через временный файл, чтобы оборванная запись не оставила полфайла.
func writeKeys(path string, keys *VAPIDKeys) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
