package config

import (
	"errors"
	"fmt"
	"log"
	"time"
	_ "time/tzdata" // часовой пояс по умолчанию без системной tzdata

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Environment    string `envconfig:"ENV" default:"development"`
	StorageDriver  string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	DBDSN          string `envconfig:"DB_DSN"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH"` // пусто: встроенные миграции

	TelegramToken string `envconfig:"TELEGRAM_TOKEN" required:"true"`

	// Встроены без имени поля, чтобы envconfig не добавлял префикс к ключам
	GoogleConfig
	ReminderConfig

	Timezone string `envconfig:"TIMEZONE" default:"Asia/Tashkent"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	RabbitURL      string `envconfig:"RABBIT_URL"`
	RabbitExchange string `envconfig:"RABBIT_EXCHANGE" default:"lesson.events"`

	location *time.Location
}

// GoogleConfig OAuth-клиент и параметры календаря
type GoogleConfig struct {
	ClientID        string        `envconfig:"GOOGLE_CLIENT_ID"`
	ClientSecret    string        `envconfig:"GOOGLE_CLIENT_SECRET"`
	CallbackURL     string        `envconfig:"GOOGLE_CALLBACK_URL"`
	CalendarID      string        `envconfig:"CALENDAR_ID" default:"primary"`
	CalendarTimeout time.Duration `envconfig:"CALENDAR_TIMEOUT" default:"10s"`
}

// ReminderConfig периодичность и окно рассылки напоминаний
type ReminderConfig struct {
	Interval    time.Duration `envconfig:"REMINDER_INTERVAL" default:"60s"`
	LookBehind  time.Duration `envconfig:"REMINDER_LOOKBEHIND" default:"5m"`
	LookAhead   time.Duration `envconfig:"REMINDER_LOOKAHEAD" default:"20m"`
	LockTTL     time.Duration `envconfig:"REMINDER_LOCK_TTL" default:"50s"`
	SendTimeout time.Duration `envconfig:"REMINDER_SEND_TIMEOUT" default:"15s"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфигурацию только из переменных окружения
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required but not set")
	}

	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DBDSN == "" {
			return errors.New("DB_DSN is required but not set")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.ReminderConfig.Interval <= 0 {
		return errors.New("REMINDER_INTERVAL must be positive")
	}
	if c.ReminderConfig.LookBehind <= 0 || c.ReminderConfig.LookAhead <= 0 {
		return errors.New("REMINDER_LOOKBEHIND and REMINDER_LOOKAHEAD must be positive")
	}
	if c.ReminderConfig.SendTimeout <= 0 {
		return errors.New("REMINDER_SEND_TIMEOUT must be positive")
	}
	if c.GoogleConfig.CalendarTimeout <= 0 {
		return errors.New("CALENDAR_TIMEOUT must be positive")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc

	return nil
}

// Location часовой пояс для отображения времени, загружается один раз в Validate
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}
