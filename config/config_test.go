package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfig(t *testing.T) {
	t.Run("secret from the environment alone, no .env file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_from_env")

		cfg, err := GetConfig()
		require.NoError(t, err)
		assert.Equal(t, "whsec_from_env", cfg.WebhookSecret)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, int64(1<<20), cfg.MaxPayloadBytes)
	})

	t.Run("error - missing secret", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("STRIPE_WEBHOOK_SECRET", "")

		_, err := GetConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET is required")
	})

	t.Run("env overrides defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_x")
		t.Setenv("WEBHOOK_MAX_RETRIES", "5")
		t.Setenv("WEBHOOK_RETRY_BACKOFF_MS", "100,200")

		cfg, err := GetConfig()
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.MaxRetries)
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, cfg.BackoffSchedule())
	})
}

func TestConfig_AllowedIPs(t *testing.T) {
	t.Run("empty allowlist means allow all", func(t *testing.T) {
		cfg := Config{IPAllowlist: "  "}
		assert.Nil(t, cfg.AllowedIPs())
	})

	t.Run("comma separated with whitespace", func(t *testing.T) {
		cfg := Config{IPAllowlist: "10.0.0.1, 10.0.0.2 ,,"}
		assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.AllowedIPs())
	})
}

func TestConfig_BackoffSchedule(t *testing.T) {
	t.Run("parses the configured delays", func(t *testing.T) {
		cfg := Config{RetryBackoffMs: "1000,5000,10000"}
		assert.Equal(t,
			[]time.Duration{time.Second, 5 * time.Second, 10 * time.Second},
			cfg.BackoffSchedule())
	})

	t.Run("malformed schedule falls back to defaults", func(t *testing.T) {
		cfg := Config{RetryBackoffMs: "1000,banana"}
		assert.Equal(t,
			[]time.Duration{time.Second, 5 * time.Second, 10 * time.Second},
			cfg.BackoffSchedule())
	})
}

func TestConfig_ServerWriteTimeout(t *testing.T) {
	t.Run("covers the worst case under defaults", func(t *testing.T) {
		cfg := Config{
			ProcessingTimeoutMs: 30000,
			MaxRetries:          3,
			RetryBackoffMs:      "1000,5000,10000",
		}

		// 4 attempts x 30s + 16s backoff + 30s headroom
		assert.Equal(t, 166*time.Second, cfg.ServerWriteTimeout())
	})

	t.Run("retries beyond the schedule reuse the last delay", func(t *testing.T) {
		cfg := Config{
			ProcessingTimeoutMs: 1000,
			MaxRetries:          5,
			RetryBackoffMs:      "100,200",
		}

		// 6 attempts x 1s + (100+200+200+200+200)ms + 30s headroom
		assert.Equal(t, 6*time.Second+900*time.Millisecond+30*time.Second, cfg.ServerWriteTimeout())
	})
}
