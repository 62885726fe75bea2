package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// FeedURL is the HTTPS source of the blocklist feed, one domain per line.
	FeedURL string `koanf:"feed_url" validate:"required,http_url"`

	// DBPath is the path of the embedded database file.
	DBPath string `koanf:"db_path" validate:"required"`

	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// CacheSize bounds the verdict cache. 0 disables caching.
	CacheSize uint `koanf:"cache_size"`

	// FPRate is the target false-positive rate for the approximate filter.
	FPRate float64 `koanf:"fp_rate" validate:"required,gt=0,lt=1"`

	// RefreshMinutes is the staleness threshold for a scheduled refresh.
	RefreshMinutes uint `koanf:"refresh_minutes" validate:"required,gte=1"`

	// HardRefreshMinutes forces a refresh regardless of apparent freshness.
	HardRefreshMinutes uint `koanf:"hard_refresh_minutes" validate:"required,gtefield=RefreshMinutes"`

	// RetryInitialSeconds is the first retry delay after a sync failure.
	RetryInitialSeconds uint `koanf:"retry_initial_seconds" validate:"required,gte=1"`

	// RetryMaxSeconds caps the exponential retry backoff.
	RetryMaxSeconds uint `koanf:"retry_max_seconds" validate:"required,gtefield=RetryInitialSeconds"`

	// BatchSize is the number of keys committed per store transaction during
	// indexing.
	BatchSize uint `koanf:"batch_size" validate:"required,gte=1"`
}

// DEFAULT_APP_CONFIG defines the default engine configuration: 1% filter
// error rate, 10k verdict cache, 6h soft / 7d hard refresh, 5m→1h retry
// backoff, 5k keys per indexing batch.
var DEFAULT_APP_CONFIG = AppConfig{
	DBPath:              "domshield.db",
	Env:                 "prod",
	LogLevel:            "info",
	CacheSize:           10000,
	FPRate:              0.01,
	RefreshMinutes:      360,
	HardRefreshMinutes:  10080,
	RetryInitialSeconds: 300,
	RetryMaxSeconds:     3600,
	BatchSize:           5000,
}

// envLoader loads environment variables with the prefix "DOMSHIELD_",
// lowercased and stripped of the prefix. Declared as a var so tests can mock
// it.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "DOMSHIELD_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "DOMSHIELD_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads default values using the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
