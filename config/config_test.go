package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DOMSHIELD_FEED_URL", "https://feeds.example.com/blocklist.txt")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://feeds.example.com/blocklist.txt", cfg.FeedURL)
	assert.Equal(t, "domshield.db", cfg.DBPath)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint(10000), cfg.CacheSize)
	assert.Equal(t, 0.01, cfg.FPRate)
	assert.Equal(t, uint(360), cfg.RefreshMinutes)
	assert.Equal(t, uint(10080), cfg.HardRefreshMinutes)
	assert.Equal(t, uint(300), cfg.RetryInitialSeconds)
	assert.Equal(t, uint(3600), cfg.RetryMaxSeconds)
	assert.Equal(t, uint(5000), cfg.BatchSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DOMSHIELD_FEED_URL", "https://feeds.example.com/blocklist.txt")
	t.Setenv("DOMSHIELD_ENV", "dev")
	t.Setenv("DOMSHIELD_LOG_LEVEL", "debug")
	t.Setenv("DOMSHIELD_CACHE_SIZE", "500")
	t.Setenv("DOMSHIELD_FP_RATE", "0.001")
	t.Setenv("DOMSHIELD_REFRESH_MINUTES", "60")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint(500), cfg.CacheSize)
	assert.Equal(t, 0.001, cfg.FPRate)
	assert.Equal(t, uint(60), cfg.RefreshMinutes)
}

func TestLoadMissingFeedURL(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad feed url", "DOMSHIELD_FEED_URL", "not-a-url"},
		{"bad env", "DOMSHIELD_ENV", "staging"},
		{"bad log level", "DOMSHIELD_LOG_LEVEL", "verbose"},
		{"fp rate out of range", "DOMSHIELD_FP_RATE", "1.5"},
		{"hard refresh below refresh", "DOMSHIELD_HARD_REFRESH_MINUTES", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DOMSHIELD_FEED_URL", "https://feeds.example.com/blocklist.txt")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
