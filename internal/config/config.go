package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0:8080"`

	StoreDriver  string `env:"STORE_DRIVER" envDefault:"postgres"`
	PostgresConn string `env:"POSTGRES_CONN"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"bidmarket.db"`

	StoreTimeout      time.Duration `env:"STORE_TIMEOUT" envDefault:"3s"`
	StatusMaxRetries  uint64        `env:"BID_STATUS_MAX_RETRIES" envDefault:"3"`
	StatusRetryDelay  time.Duration `env:"BID_STATUS_RETRY_DELAY" envDefault:"10ms"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	RabbitMQURL   string `env:"RABBITMQ_URL"`
	RabbitMQQueue string `env:"RABBITMQ_QUEUE" envDefault:"bid_events"`

	// 0 отключает ограничение
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// через сколько простоя забывать клиента
	RateLimitIdleTTL time.Duration `env:"RATE_LIMIT_IDLE_TTL" envDefault:"10m"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load читает .env (если есть) и переменные окружения
func Load() (Config, error) {
	// .env не обязателен
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case "postgres":
		if c.PostgresConn == "" {
			return errors.New("POSTGRES_CONN env variable is not set")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH env variable is not set")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q, want postgres or sqlite", c.StoreDriver)
	}
	if c.RateLimitRPS < 0 {
		return errors.New("RATE_LIMIT_RPS must not be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitIdleTTL <= 0 {
		return errors.New("RATE_LIMIT_IDLE_TTL must be positive")
	}
	return nil
}

// StoreDSN строка подключения для выбранного драйвера
func (c Config) StoreDSN() string {
	if c.StoreDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.PostgresConn
}
