package postgres

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormprom "gorm.io/plugin/prometheus"
)

const (
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 10
	defaultMaxLifetime  = 5 * time.Minute
	defaultSSLMode      = "disable"
)

type Config struct {
	Host    string
	Port    string
	User    string
	Passwd  string
	DB      string
	SSLMode string

	Connection struct {
		MaxOpen     int
		MaxIdle     int
		MaxLifetime time.Duration
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Host == "" {
		return errors.New("postgres host is empty")
	}
	if cfg.Port == "" {
		return errors.New("postgres port is empty")
	}
	if cfg.User == "" {
		return errors.New("postgres user is empty")
	}
	if cfg.Passwd == "" {
		return errors.New("postgres password is empty")
	}
	if cfg.DB == "" {
		return errors.New("postgres db is empty")
	}

	if cfg.SSLMode == "" {
		cfg.SSLMode = defaultSSLMode
	}
	if cfg.Connection.MaxOpen == 0 {
		cfg.Connection.MaxOpen = defaultMaxOpenConns
	}
	if cfg.Connection.MaxIdle == 0 {
		cfg.Connection.MaxIdle = defaultMaxIdleConns
	}
	if cfg.Connection.MaxLifetime == 0 {
		cfg.Connection.MaxLifetime = defaultMaxLifetime
	}
	return nil
}

func dsn(cfg *Config) string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=GMT`,
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Passwd,
		cfg.DB,
		cfg.SSLMode,
	)
}

// NewClient opens a pooled gorm connection and exports its pool statistics
// (gorm_dbstats_*) to the default prometheus registry.
func NewClient(cfg *Config, logger *zap.Logger) (*gorm.DB, error) {
	if cfg == nil {
		return nil, errors.New("cfg is nil")
	}
	if logger == nil {
		return nil, errors.New("logger is nil")
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	orm, err := gorm.Open(postgres.Open(dsn(cfg)), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	if err := orm.Use(gormprom.New(gormprom.Config{DBName: cfg.DB})); err != nil {
		return nil, fmt.Errorf("init gorm prometheus: %w", err)
	}

	db, err := orm.DB()
	if err != nil {
		return nil, fmt.Errorf("raw db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	db.SetMaxOpenConns(cfg.Connection.MaxOpen)
	db.SetMaxIdleConns(cfg.Connection.MaxIdle)
	db.SetConnMaxLifetime(cfg.Connection.MaxLifetime)

	logger.Info("connected to postgres", zap.String("host", cfg.Host), zap.String("db", cfg.DB))

	return orm, nil
}
