package config

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config — все настройки сервиса, читаются из окружения.
type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"booking-engine"`
	Env         string `envconfig:"ENV" default:"dev"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr string `envconfig:"GRPC_ADDR" default:":50051"`
	// Сколько ждать завершения запросов и outbox-воркера при остановке.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`

	DB     DBConfig     `envconfig:"DB"`
	Tx     TxConfig     `envconfig:"TX"`
	Outbox OutboxConfig `envconfig:"OUTBOX"`
	Rabbit RabbitConfig `envconfig:"RABBIT"`
	Otel   OtelConfig   `envconfig:"OTEL"`
}

// TxConfig — параметры транзакций записи броней.
type TxConfig struct {
	Timeout time.Duration `split_words:"true" default:"10s"`
	// read_committed (с advisory-локом по мастеру и дню) или serializable.
	Isolation string `split_words:"true" default:"read_committed"`
}

// IsolationLevel переводит строку настройки в sql.IsolationLevel.
func (c TxConfig) IsolationLevel() sql.IsolationLevel {
	switch strings.ToLower(c.Isolation) {
	case "serializable":
		return sql.LevelSerializable
	case "repeatable_read":
		return sql.LevelRepeatableRead
	default:
		return sql.LevelReadCommitted
	}
}

// GinMode — режим gin для окружения.
func (c Config) GinMode() string {
	switch c.Env {
	case "prod", "production":
		return "release"
	case "test":
		return "test"
	default:
		return "debug"
	}
}

// SlogLevel переводит LOG_LEVEL в уровень slog; неизвестное значение — info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type OutboxConfig struct {
	Interval  time.Duration `split_words:"true" default:"5s"`
	BatchSize int           `split_words:"true" default:"100"`
}

// RabbitConfig — брокер для публикации outbox-событий.
// При пустом URL события только логируются.
type RabbitConfig struct {
	URL            string        `split_words:"true"`
	Exchange       string        `split_words:"true" default:"booking.events"`
	ConfirmTimeout time.Duration `split_words:"true" default:"5s"`
}

// OtelConfig — экспорт трейсов. При пустом Endpoint трейсинг выключен.
type OtelConfig struct {
	Endpoint string `envconfig:"EXPORTER_OTLP_ENDPOINT"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	if cfg.Tx.Timeout <= 0 {
		return nil, fmt.Errorf("invalid TX_TIMEOUT: %s", cfg.Tx.Timeout)
	}
	if cfg.Outbox.Interval <= 0 || cfg.Outbox.BatchSize <= 0 {
		return nil, fmt.Errorf("invalid outbox config: interval and batch size must be positive")
	}
	return &cfg, nil
}
