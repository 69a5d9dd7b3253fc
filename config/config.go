package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

/* Config é um pacote auxiliar. Poderia ser uma lib externa*/

type Config struct {
	Port string `mapstructure:"PORT"`

	// Webhook pipeline settings
	WebhookSecret       string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	IPAllowlist         string `mapstructure:"WEBHOOK_IP_ALLOWLIST"`
	MaxPayloadBytes     int64  `mapstructure:"WEBHOOK_MAX_PAYLOAD_BYTES"`
	TimestampToleranceS int    `mapstructure:"WEBHOOK_TIMESTAMP_TOLERANCE"`
	ProcessingTimeoutMs int    `mapstructure:"WEBHOOK_PROCESSING_TIMEOUT_MS"`
	MaxRetries          int    `mapstructure:"WEBHOOK_MAX_RETRIES"`
	RetryBackoffMs      string `mapstructure:"WEBHOOK_RETRY_BACKOFF_MS"`
	RateLimitPerMinute  int    `mapstructure:"WEBHOOK_RATE_LIMIT_PER_MINUTE"`

	// Collaborators
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	EventsConfig  string `mapstructure:"EVENTS_CONFIG"`
}

func GetConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	// Registered empty so AutomaticEnv picks it up; validated as required below
	viper.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	viper.SetDefault("WEBHOOK_IP_ALLOWLIST", "")
	viper.SetDefault("WEBHOOK_MAX_PAYLOAD_BYTES", 1<<20)
	viper.SetDefault("WEBHOOK_TIMESTAMP_TOLERANCE", 300)
	viper.SetDefault("WEBHOOK_PROCESSING_TIMEOUT_MS", 30000)
	viper.SetDefault("WEBHOOK_MAX_RETRIES", 3)
	viper.SetDefault("WEBHOOK_RETRY_BACKOFF_MS", "1000,5000,10000")
	viper.SetDefault("WEBHOOK_RATE_LIMIT_PER_MINUTE", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("EVENTS_CONFIG", "events.yaml")

	// A local .env file is optional; the environment alone is enough
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}

	if config.WebhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}

	return &config, nil
}

// AllowedIPs returns the parsed IP allowlist; empty means allow all.
func (c *Config) AllowedIPs() []string {
	if strings.TrimSpace(c.IPAllowlist) == "" {
		return nil
	}
	parts := strings.Split(c.IPAllowlist, ",")
	ips := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ips = append(ips, p)
		}
	}
	return ips
}

// TimestampTolerance returns the signature timestamp tolerance as a duration.
func (c *Config) TimestampTolerance() time.Duration {
	return time.Duration(c.TimestampToleranceS) * time.Second
}

// ProcessingTimeout returns the per-attempt handler timeout as a duration.
func (c *Config) ProcessingTimeout() time.Duration {
	return time.Duration(c.ProcessingTimeoutMs) * time.Millisecond
}

// ServerWriteTimeout returns the HTTP write timeout sized above the pipeline's
// worst case: every attempt running to the processing timeout plus the full
// backoff schedule, with headroom for the response write.
func (c *Config) ServerWriteTimeout() time.Duration {
	budget := time.Duration(c.MaxRetries+1) * c.ProcessingTimeout()
	schedule := c.BackoffSchedule()
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		if attempt <= len(schedule) {
			budget += schedule[attempt-1]
		} else {
			budget += schedule[len(schedule)-1]
		}
	}
	return budget + 30*time.Second
}

// BackoffSchedule parses the per-attempt backoff delays.
// Malformed entries fall back to the default schedule.
func (c *Config) BackoffSchedule() []time.Duration {
	defaults := []time.Duration{time.Second, 5 * time.Second, 10 * time.Second}

	parts := strings.Split(c.RetryBackoffMs, ",")
	schedule := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		ms, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || ms < 0 {
			return defaults
		}
		schedule = append(schedule, time.Duration(ms)*time.Millisecond)
	}
	if len(schedule) == 0 {
		return defaults
	}
	return schedule
}
