package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"teamy/pkg/errors"
)

// Storage drivers accepted by STORAGE_DRIVER
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Files probed for environment overrides, in order. Missing files are ignored.
var envFiles = []string{".env", "config.env"}

type Config struct {
	App           AppConfig
	Telegram      TelegramConfig
	Admin         AdminConfig
	Storage       StorageConfig
	SQLite        SQLiteConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	HTTP          HTTPConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"teamy"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type TelegramConfig struct {
	BotToken       string        `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	WebhookURL     string        `envconfig:"TELEGRAM_WEBHOOK_URL"`
	Debug          bool          `envconfig:"TELEGRAM_DEBUG" default:"false"`
	PollTimeout    int           `envconfig:"TELEGRAM_POLL_TIMEOUT" default:"60"`
	HTTPTimeout    time.Duration `envconfig:"TELEGRAM_HTTP_TIMEOUT" default:"20s"`
	RateLimitRate  int           `envconfig:"TELEGRAM_RATE_LIMIT" default:"20"`
	RateLimitBurst int           `envconfig:"TELEGRAM_RATE_BURST" default:"30"`
}

// AdminConfig identifies the single admin and the two shared secrets that
// select the export and clear operations.
type AdminConfig struct {
	UserID      int64  `envconfig:"ADMIN_USER_ID" required:"true"`
	ExportToken string `envconfig:"ADMIN_EXPORT_TOKEN" required:"true"`
	ClearToken  string `envconfig:"ADMIN_CLEAR_TOKEN" required:"true"`
}

type StorageConfig struct {
	Driver string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
}

type SQLiteConfig struct {
	Path string `envconfig:"SQLITE_PATH" default:"teamy_bot.db"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host      string `envconfig:"REDIS_HOST"`
	Port      int    `envconfig:"REDIS_PORT" default:"6379"`
	Password  string `envconfig:"REDIS_PASSWORD"`
	DB        int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"teamy"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig enables the usage event stream when Brokers is non-empty
type KafkaConfig struct {
	Brokers    []string `envconfig:"KAFKA_BROKERS"`
	UsageTopic string   `envconfig:"KAFKA_USAGE_TOPIC" default:"usage.command_recorded"`
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type HTTPConfig struct {
	Enabled bool `envconfig:"HTTP_ENABLED" default:"true"`
	Port    int  `envconfig:"HTTP_PORT" default:"8080"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables.
// .env / config.env are applied first when present (local development).
func Load() (*Config, error) {
	for _, file := range envFiles {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks rules envconfig tags cannot express
func (c *Config) Validate() error {
	var errs errors.MultiError

	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		errs.Add(errors.Wrap(errors.ErrMissingConfig, "TELEGRAM_BOT_TOKEN"))
	}
	if c.Admin.ExportToken == "" {
		errs.Add(errors.Wrap(errors.ErrMissingConfig, "ADMIN_EXPORT_TOKEN"))
	}
	if c.Admin.ClearToken == "" {
		errs.Add(errors.Wrap(errors.ErrMissingConfig, "ADMIN_CLEAR_TOKEN"))
	}
	if c.Admin.ExportToken != "" && c.Admin.ExportToken == c.Admin.ClearToken {
		errs.Add(errors.Wrap(errors.ErrInvalidInput, "ADMIN_EXPORT_TOKEN and ADMIN_CLEAR_TOKEN must differ"))
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.SQLite.Path == "" {
			errs.Add(errors.Wrap(errors.ErrMissingConfig, "SQLITE_PATH"))
		}
	case DriverPostgres:
		for key, val := range map[string]string{
			"POSTGRES_HOST": c.Postgres.Host,
			"POSTGRES_USER": c.Postgres.User,
			"POSTGRES_DB":   c.Postgres.Database,
		} {
			if val == "" {
				errs.Add(errors.Wrap(errors.ErrMissingConfig, key))
			}
		}
	case DriverRedis:
		if c.Redis.Host == "" {
			errs.Add(errors.Wrap(errors.ErrMissingConfig, "REDIS_HOST"))
		}
	case DriverMemory:
	default:
		errs.Add(errors.Wrapf(errors.ErrUnsupportedDriver, "STORAGE_DRIVER=%q", c.Storage.Driver))
	}

	return errs.ToError()
}
