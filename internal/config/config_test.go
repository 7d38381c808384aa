package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "cinema")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_NAME", "cinema")
	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 10*time.Minute, cfg.RefreshTTL)
	assert.Equal(t, PolicyLenient, cfg.AuthPolicy)
	assert.Equal(t, SessionStoreMySQL, cfg.SessionStore)
	assert.Equal(t, 100, cfg.SeatCapacity)
	assert.True(t, cfg.CookieSecure)
	assert.True(t, cfg.Cache.Methods["GET"])
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTH_POLICY", "STRICT")
	t.Setenv("ACCESS_TOKEN_TTL", "90s")
	t.Setenv("SEAT_CAPACITY", "40")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("SESSION_STORE", "mongo")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, PolicyStrict, cfg.AuthPolicy)
	assert.Equal(t, 90*time.Second, cfg.AccessTTL)
	assert.Equal(t, 40, cfg.SeatCapacity)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, SessionStoreMongo, cfg.SessionStore)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("REFRESH_TOKEN_SECRET", "")
	t.Setenv("DB_HOST", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REFRESH_TOKEN_SECRET")
	assert.Contains(t, err.Error(), "DB_HOST")
}

func TestLoad_RejectsSharedSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("REFRESH_TOKEN_SECRET", "access-secret")

	_, err := Load()
	assert.ErrorContains(t, err, "must differ")
}

func TestLoad_RejectsUnknownPolicy(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTH_POLICY", "open")

	_, err := Load()
	assert.ErrorContains(t, err, "AUTH_POLICY")
}

func TestRateLimitConfig_Normalize(t *testing.T) {
	cfg := RateLimitConfig{Capacity: 0, RefillTokens: 0, RefillInterval: 2 * time.Second}.normalize()

	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}
