package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Environment: "test",
		ListenAddr:  ":8080",
		LogLevel:    "info",
		Upstream: UpstreamConfig{
			BaseURL:        "http://localhost:9000",
			TimeoutSeconds: 30,
		},
		Poll: PollConfig{
			AlertIntervalSeconds:  DefaultAlertPollSeconds,
			HealthIntervalSeconds: DefaultHealthPollSeconds,
		},
		Overlay: OverlayConfig{
			RetentionSeconds: DefaultMutationRetentionSeconds,
		},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, DefaultAlertPollSeconds, cfg.Poll.AlertIntervalSeconds)
	assert.Equal(t, DefaultHealthPollSeconds, cfg.Poll.HealthIntervalSeconds)
	assert.Equal(t, DefaultMutationRetentionSeconds, cfg.Overlay.RetentionSeconds)
	assert.Equal(t, "http://localhost:9000", cfg.Upstream.BaseURL)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ALERTFEED_POLL_ALERT_INTERVAL_SECONDS", "15")
	t.Setenv("ALERTFEED_UPSTREAM_BASE_URL", "https://collect.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Poll.AlertIntervalSeconds)
	assert.Equal(t, "https://collect.example.com", cfg.Upstream.BaseURL)
}

func TestValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, Validate(validConfig()))
	})

	t.Run("missing upstream URL fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Upstream.BaseURL = ""
		assert.Error(t, Validate(cfg))
	})

	t.Run("non-http scheme fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Upstream.BaseURL = "ftp://example.com"
		assert.Error(t, Validate(cfg))
	})

	t.Run("too small poll interval fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Poll.AlertIntervalSeconds = 1
		assert.Error(t, Validate(cfg))
	})

	t.Run("non-positive retention fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Overlay.RetentionSeconds = 0
		assert.Error(t, Validate(cfg))
	})
}
