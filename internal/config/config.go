package config

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type AppConfig struct {
	AppEnv   string `mapstructure:"app_env" validate:"oneof=dev prod"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`

	// HTTPAddr is where the local dashboard API listens.
	HTTPAddr string `mapstructure:"http_addr" validate:"required"`

	// Remote readings server.
	RemoteBaseURL    string        `mapstructure:"remote_base_url" validate:"required,url"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
	MaxRetries       int           `mapstructure:"remote_max_retries" validate:"gte=0,lte=10"`
	RetryInitial     time.Duration `mapstructure:"remote_retry_initial" validate:"gt=0"`
	RetryMax         time.Duration `mapstructure:"remote_retry_max" validate:"gtefield=RetryInitial"`
	BreakerThreshold uint32        `mapstructure:"breaker_failure_threshold" validate:"gt=0"`
	BreakerTimeout   time.Duration `mapstructure:"breaker_timeout" validate:"gt=0"`
	BreakerInterval  time.Duration `mapstructure:"breaker_interval" validate:"gte=0"`

	// Refresh behaviour.
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout" validate:"gte=0"`
	MaxInFlight      int64         `mapstructure:"max_in_flight" validate:"gte=1"`
	CancelSuperseded bool          `mapstructure:"cancel_superseded"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval" validate:"gte=0"`
	EventBuffer      int           `mapstructure:"event_buffer" validate:"gte=1"`

	// In-memory snapshot cache retention.
	CacheMaxDates int           `mapstructure:"cache_max_dates" validate:"gte=0"`
	CacheMaxAge   time.Duration `mapstructure:"cache_max_age" validate:"gte=0"`

	// Rendered chart size in pixels.
	ChartWidth  int `mapstructure:"chart_width" validate:"gte=100"`
	ChartHeight int `mapstructure:"chart_height" validate:"gte=100"`
}

var validate = validator.New()

// Load reads configuration from a .env file, the environment and flags (in
// increasing priority) with sensible defaults. flags may be nil.
func Load(flags *pflag.FlagSet) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8080")

	v.SetDefault("remote_base_url", "http://localhost:3500")
	v.SetDefault("http_timeout", "10s")
	v.SetDefault("remote_max_retries", 0)
	v.SetDefault("remote_retry_initial", "500ms")
	v.SetDefault("remote_retry_max", "5s")
	v.SetDefault("breaker_failure_threshold", 5)
	v.SetDefault("breaker_timeout", "2m")
	v.SetDefault("breaker_interval", "1m")

	v.SetDefault("fetch_timeout", "30s")
	v.SetDefault("max_in_flight", 2)
	v.SetDefault("cancel_superseded", true)
	v.SetDefault("refresh_interval", "5m")
	v.SetDefault("event_buffer", 64)

	v.SetDefault("cache_max_dates", 14)
	v.SetDefault("cache_max_age", "24h")

	v.SetDefault("chart_width", 600)
	v.SetDefault("chart_height", 500)
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"base-url":         "remote_base_url",
	"addr":             "http_addr",
	"log-level":        "log_level",
	"refresh-interval": "refresh_interval",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Validate checks that all configuration values are valid.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
