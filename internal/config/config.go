package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// MinPollIntervalSeconds is the minimum allowed alert poll interval
	MinPollIntervalSeconds = 5

	// DefaultAlertPollSeconds is the default alert poll interval
	DefaultAlertPollSeconds = 10

	// DefaultHealthPollSeconds is the default upstream health poll interval
	DefaultHealthPollSeconds = 30

	// DefaultMutationRetentionSeconds is how long an unconfirmed optimistic
	// mutation is replayed over incoming snapshots before the canonical data wins
	DefaultMutationRetentionSeconds = 300
)

// Config holds the full service configuration.
type Config struct {
	Environment string `mapstructure:"environment"`
	ListenAddr  string `mapstructure:"listen_addr"`
	LogLevel    string `mapstructure:"log_level"`
	APIToken    string `mapstructure:"api_token"`

	Upstream UpstreamConfig `mapstructure:"upstream"`
	Poll     PollConfig     `mapstructure:"poll"`
	Overlay  OverlayConfig  `mapstructure:"overlay"`
}

// UpstreamConfig configures the collection-service client.
type UpstreamConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PollConfig configures the poll scheduler and health monitor intervals.
type PollConfig struct {
	AlertIntervalSeconds  int `mapstructure:"alert_interval_seconds"`
	HealthIntervalSeconds int `mapstructure:"health_interval_seconds"`
}

// OverlayConfig configures the local mutation overlay.
type OverlayConfig struct {
	RetentionSeconds int `mapstructure:"retention_seconds"`
}

// Load reads configuration with priority: environment variables, then
// config.yaml, then defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/alertfeed/")
	v.AddConfigPath("./configs/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ALERTFEED")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		// No config file - continue with env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")

	v.SetDefault("upstream.base_url", "http://localhost:9000")
	v.SetDefault("upstream.timeout_seconds", 30)

	v.SetDefault("poll.alert_interval_seconds", DefaultAlertPollSeconds)
	v.SetDefault("poll.health_interval_seconds", DefaultHealthPollSeconds)

	v.SetDefault("overlay.retention_seconds", DefaultMutationRetentionSeconds)
}

// Validate checks the configuration for values the service cannot run with.
func Validate(cfg *Config) error {
	if err := validateURL(cfg.Upstream.BaseURL); err != nil {
		return err
	}
	if cfg.Upstream.TimeoutSeconds <= 0 {
		return errors.New("upstream timeout must be positive")
	}
	if cfg.Poll.AlertIntervalSeconds < MinPollIntervalSeconds {
		return errors.Errorf("alert poll interval must be at least %d seconds", MinPollIntervalSeconds)
	}
	if cfg.Poll.HealthIntervalSeconds < MinPollIntervalSeconds {
		return errors.Errorf("health poll interval must be at least %d seconds", MinPollIntervalSeconds)
	}
	if cfg.Overlay.RetentionSeconds <= 0 {
		return errors.New("overlay retention must be positive")
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("upstream base URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, "invalid upstream base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("upstream base URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("upstream base URL must include a host")
	}
	return nil
}

// AlertPollInterval returns the alert poll interval as a duration.
func (c *Config) AlertPollInterval() time.Duration {
	return time.Duration(c.Poll.AlertIntervalSeconds) * time.Second
}

// HealthPollInterval returns the health poll interval as a duration.
func (c *Config) HealthPollInterval() time.Duration {
	return time.Duration(c.Poll.HealthIntervalSeconds) * time.Second
}

// MutationRetention returns the overlay retention window as a duration.
func (c *Config) MutationRetention() time.Duration {
	return time.Duration(c.Overlay.RetentionSeconds) * time.Second
}
