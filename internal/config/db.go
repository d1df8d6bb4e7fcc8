package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type DBConfig struct {
	// postgres или sqlite (локальный запуск без Postgres).
	Driver     string `split_words:"true" default:"postgres"`
	SQLitePath string `split_words:"true" default:"booking.db"`

	Host            string        `split_words:"true" default:"postgres"`
	Port            int           `split_words:"true" default:"5432"`
	User            string        `split_words:"true" default:"booking"`
	Password        string        `split_words:"true" default:"booking"`
	Name            string        `split_words:"true" default:"booking_db"`
	SSLMode         string        `split_words:"true" default:"disable"`
	TimeZone        string        `split_words:"true" default:"UTC"`
	MaxOpenConns    int           `split_words:"true" default:"10"`
	MaxIdleConns    int           `split_words:"true" default:"5"`
	ConnMaxLifeTime time.Duration `split_words:"true" default:"30m"`

	// Накатывать ли goose-миграции при старте.
	Migrate bool `split_words:"true" default:"true"`
}

// DSN собирает строку подключения для gorm.io/driver/postgres.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone,
	)
}

func (c DBConfig) validate() error {
	if c.Driver == "sqlite" {
		if c.SQLitePath == "" {
			return fmt.Errorf("invalid DB config: sqlite path must not be empty")
		}
		return nil
	}
	if c.Driver != "postgres" {
		return fmt.Errorf("invalid DB config: unknown driver %q", c.Driver)
	}
	if c.Host == "" || c.User == "" || c.Name == "" {
		return fmt.Errorf("invalid DB config: host/user/name must not be empty")
	}
	return nil
}

// LoadDBConfig читает только настройки БД (переменные DB_*).
func LoadDBConfig() (*DBConfig, error) {
	var cfg DBConfig
	if err := envconfig.Process("DB", &cfg); err != nil {
		return nil, fmt.Errorf("load db config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
