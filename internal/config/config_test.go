package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TICKET_NUMBER_CEILING", "")
	t.Setenv("CHAT_UNREAD_WINDOW_HOURS", "")
	t.Setenv("REDIS_DB", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 999, cfg.Tickets.NumberCeiling)
	assert.Equal(t, 3, cfg.Tickets.DefaultDeadlineDays)
	assert.Equal(t, 10, cfg.Chat.SearchDefaultLimit)
	assert.Equal(t, int64(2048*1024), cfg.Chat.AttachmentMaxBytes)
	assert.Equal(t, 24*time.Hour, cfg.Chat.UnreadWindow())
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TICKET_NUMBER_CEILING", "50")
	t.Setenv("CHAT_UNREAD_WINDOW_HOURS", "6")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "15")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Tickets.NumberCeiling)
	assert.Equal(t, 6*time.Hour, cfg.Chat.UnreadWindow())
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL())
	assert.False(t, cfg.Postgres.RunMigrations)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("TICKET_NUMBER_MAX_ATTEMPTS", "many")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Tickets.NumberMaxAttempts)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "primary")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid REDIS_DB")
}

func TestAppConfig_Addr(t *testing.T) {
	app := AppConfig{Host: "127.0.0.1", Port: "9000", RequestTimeoutSeconds: 0}
	assert.Equal(t, "127.0.0.1:9000", app.Addr())
	assert.Zero(t, app.RequestTimeout())
}
