package startup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/airdroptracker/internal/logger"
	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
)

// EmbeddedPostgres - параметры встроенного Postgres для -dev и интеграционных тестов.
type EmbeddedPostgres struct {
	Port     uint32
	DataDir  string
	User     string
	Password string
	Database string
}

// DevEmbeddedPostgres - настройки по умолчанию для локального запуска (данные в ./.pgdata).
func DevEmbeddedPostgres() EmbeddedPostgres {
	return EmbeddedPostgres{
		Port:     5432,
		DataDir:  filepath.Join(".", ".pgdata"),
		User:     "tracker",
		Password: "tracker_secret",
		Database: "tracker",
	}
}

// URL - строка подключения к запущенному экземпляру.
func (e EmbeddedPostgres) URL() string {
	return fmt.Sprintf("postgres://%s:%s@localhost:%d/%s?sslmode=disable", e.User, e.Password, e.Port, e.Database)
}

// StartEmbeddedPostgres запускает Postgres в процессе. Остановка - Stop() у результата.
func StartEmbeddedPostgres(e EmbeddedPostgres) (*embeddedpostgres.EmbeddedPostgres, error) {
	if err := os.MkdirAll(e.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}
	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(e.Port).
			Username(e.User).
			Password(e.Password).
			Database(e.Database).
			DataPath(e.DataDir).
			RuntimePath(filepath.Join(os.TempDir(), fmt.Sprintf("embedded-pg-runtime-%d", e.Port))),
	)
	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start embedded postgres: %w", err)
	}
	logger.Infof("embedded PostgreSQL running on port %d", e.Port)
	return db, nil
}
