package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("PORT", "")
	t.Setenv("TOKEN_TTL_HOURS", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "auth-token", cfg.Auth.CookieName)
	assert.False(t, cfg.Auth.CookieSecure)
	assert.Equal(t, 12, cfg.Business.DefaultPageSize)
	assert.Equal(t, 100, cfg.Business.MaxPageSize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TOKEN_TTL_HOURS", "1")
	t.Setenv("AUTH_COOKIE_SECURE", "true")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Auth.CookieSecure)
	assert.Equal(t, 0, cfg.Redis.DB)
}
