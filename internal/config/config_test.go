package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("DB_DSN", "postgres://localhost/lessons")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, "primary", cfg.GoogleConfig.CalendarID)
	assert.Equal(t, 10*time.Second, cfg.GoogleConfig.CalendarTimeout)
	assert.Equal(t, time.Minute, cfg.ReminderConfig.Interval)
	assert.Equal(t, 5*time.Minute, cfg.ReminderConfig.LookBehind)
	assert.Equal(t, 20*time.Minute, cfg.ReminderConfig.LookAhead)
	assert.Equal(t, 50*time.Second, cfg.ReminderConfig.LockTTL)
	assert.Equal(t, 15*time.Second, cfg.ReminderConfig.SendTimeout)
	assert.Equal(t, "lesson.events", cfg.RabbitExchange)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestFromEnv_MemoryDriverWithoutDSN(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("DB_DSN", "")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
}

func TestFromEnv_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing dsn":       {"DB_DSN": ""},
		"unknown driver":    {"STORAGE_DRIVER": "mysql"},
		"zero lookahead":    {"REMINDER_LOOKAHEAD": "0s"},
		"negative interval": {"REMINDER_INTERVAL": "-1s"},
		"bad duration":      {"REMINDER_LOOKBEHIND": "five minutes"},
		"missing token":     {"TELEGRAM_TOKEN": ""},
		"zero send timeout": {"REMINDER_SEND_TIMEOUT": "0s"},
		"unknown timezone":  {"TIMEZONE": "Mars/Olympus"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("TELEGRAM_TOKEN", "token")
			t.Setenv("DB_DSN", "postgres://localhost/lessons")
			t.Setenv("TIMEZONE", "UTC")
			for k, v := range env {
				t.Setenv(k, v)
			}

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLocation_LoadedOnce(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("DB_DSN", "postgres://localhost/lessons")
	t.Setenv("TIMEZONE", "Asia/Tashkent")

	cfg, err := FromEnv()
	require.NoError(t, err)

	loc := cfg.Location()
	assert.Equal(t, "Asia/Tashkent", loc.String())

	// Location не перечитывает TIMEZONE после загрузки
	cfg.Timezone = "Mars/Olympus"
	assert.Same(t, loc, cfg.Location())
}

func TestLocation_DefaultsToUTCWithoutValidate(t *testing.T) {
	cfg := &Config{Timezone: "Asia/Tashkent"}
	assert.Equal(t, time.UTC, cfg.Location())
}
