package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kaytu-io/news-assistant/pkg/koanf"
	"github.com/kaytu-io/news-assistant/pkg/postgres"
	"github.com/kaytu-io/news-assistant/services/assistant/model"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Database struct {
	DB *gorm.DB
}

// New connects to postgres when it is configured and falls back to a local
// sqlite file otherwise.
func New(pg koanf.Postgres, lite koanf.SQLite, logger *zap.Logger) (Database, error) {
	if pg.Enabled() {
		return NewPostgres(pg, logger)
	}
	return NewSQLite(lite.Path, logger)
}

func NewPostgres(config koanf.Postgres, logger *zap.Logger) (Database, error) {
	cfg := postgres.Config{
		Host:    config.Host,
		Port:    config.Port,
		User:    config.Username,
		Passwd:  config.Password,
		DB:      config.DB,
		SSLMode: config.SSLMode,
	}
	orm, err := postgres.NewClient(&cfg, logger)
	if err != nil {
		return Database{}, fmt.Errorf("new postgres client: %w", err)
	}

	return Database{DB: orm}, nil
}

func NewSQLite(path string, logger *zap.Logger) (Database, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Database{}, fmt.Errorf("create db dir: %w", err)
		}
	}

	orm, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{})
	if err != nil {
		return Database{}, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	logger.Info("using sqlite database", zap.String("path", path))

	return Database{DB: orm}, nil
}

func (db Database) Initialize() error {
	err := db.DB.AutoMigrate(
		&model.Assistant{},
		&model.Thread{},
		&model.Run{},
	)
	if err != nil {
		return err
	}

	return nil
}
