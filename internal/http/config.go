package http

import (
	"github.com/NamanBalaji/segreq/internal/config"
)

const DefaultUserAgent = "segreq/1.0"

type ConfigOption func(*Config)

// Config is the immutable per-context builder configuration. Build it once
// and share the pointer between builders.
type Config struct {
	UserAgent string `json:"userAgent"`
}

func defaultConfig() *Config {
	return &Config{
		UserAgent: DefaultUserAgent,
	}
}

// NewConfig applies opts over the defaults.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// ConfigFrom derives the builder configuration from the application config.
func ConfigFrom(appCfg *config.Config) *Config {
	if appCfg == nil {
		return NewConfig()
	}

	return NewConfig(WithUserAgent(appCfg.UserAgent))
}

func WithUserAgent(userAgent string) ConfigOption {
	return func(cfg *Config) {
		if userAgent == "" {
			userAgent = DefaultUserAgent
		}

		cfg.UserAgent = userAgent
	}
}
