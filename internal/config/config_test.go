package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndValidation(t *testing.T) {
	t.Setenv("FEED_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "file", cfg.CacheBackend)
	assert.Equal(t, 60, cfg.FeedMinIntervalSec)
	assert.Equal(t, 24, cfg.LookbackHours)
	assert.NotEmpty(t, cfg.Accounts)
}

func TestLoad_RequiresFeedAPIKey(t *testing.T) {
	t.Setenv("FEED_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RedisBackendRequiresURL(t *testing.T) {
	t.Setenv("FEED_API_KEY", "secret")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_EmailRequiresSMTP(t *testing.T) {
	t.Setenv("FEED_API_KEY", "secret")
	t.Setenv("NOTIFICATION_EMAIL", "ops@example.com")
	t.Setenv("SMTP_HOST", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseAccounts(t *testing.T) {
	accounts := parseAccounts([]string{
		"cryptokate:high:crypto",
		"macromike::economy",
		"plainjoe",
		"",
	})

	require.Len(t, accounts, 3)

	assert.Equal(t, "cryptokate", accounts[0].Handle)
	assert.Equal(t, "high", accounts[0].PriorityTier)
	assert.Equal(t, "crypto", accounts[0].DefaultCategory)

	assert.Equal(t, "medium", accounts[1].PriorityTier)
	assert.Equal(t, "economy", accounts[1].DefaultCategory)

	assert.Equal(t, "plainjoe", accounts[2].Handle)
	assert.Equal(t, "medium", accounts[2].PriorityTier)
	assert.Empty(t, accounts[2].DefaultCategory)
}

func TestParseOverrides(t *testing.T) {
	overrides := parseOverrides([]string{"cryptokate=crypto", "bad-entry", "=nope"})

	assert.Equal(t, map[string]string{"cryptokate": "crypto"}, overrides)
}

func TestAccountsFromEnv(t *testing.T) {
	t.Setenv("FEED_API_KEY", "secret")
	t.Setenv("ACCOUNTS", "a:high:markets,b:low:crypto")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "b", cfg.Accounts[1].Handle)
	assert.Equal(t, "low", cfg.Accounts[1].PriorityTier)
}
