package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	reqErrors "github.com/NamanBalaji/segreq/internal/errors"
	"github.com/NamanBalaji/segreq/internal/logger"
)

const configFileName = "segreq"

const (
	ProxyMethodTunnel = "tunnel"
	ProxyMethodGet    = "get"
)

var ErrUnknownProxyMethod = errors.New("unknown proxy method")

// Config holds the configuration options for the application.
type Config struct {
	UserAgent        string       `yaml:"userAgent,omitempty"`
	DisableKeepAlive bool         `yaml:"disableKeepAlive,omitempty"`
	Connections      int          `yaml:"connections,omitempty"`
	SegmentLength    int64        `yaml:"segmentLength,omitempty"`
	StateDB          string       `yaml:"stateDb,omitempty"`
	Http             *HttpConfig  `yaml:"http,omitempty"`
	Proxy            *ProxyConfig `yaml:"proxy,omitempty"`
}

// HttpConfig holds origin server authentication.
type HttpConfig struct {
	AuthEnabled bool   `yaml:"authEnabled,omitempty"`
	User        string `yaml:"user,omitempty"`
	Password    string `yaml:"password,omitempty"`
}

// ProxyConfig holds HTTP proxy settings.
type ProxyConfig struct {
	Enabled     bool   `yaml:"enabled,omitempty"`
	Method      string `yaml:"method,omitempty"`
	Address     string `yaml:"address,omitempty"`
	AuthEnabled bool   `yaml:"authEnabled,omitempty"`
	User        string `yaml:"user,omitempty"`
	Password    string `yaml:"password,omitempty"`
}

// Path returns the location of the configuration file.
func Path() string {
	return filepath.Join(xdg.ConfigHome, configFileName)
}

// GetConfig reads the configuration file and returns a Config struct.
// If the configuration file does not exist, it returns the default configuration.
func GetConfig() (*Config, error) {
	return Load(Path())
}

// Load reads the configuration at path, falling back to defaults for anything unset.
func Load(path string) (*Config, error) {
	defaults := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debugf("No config file at %s, using defaults", path)
			return &defaults, nil
		}

		return nil, err
	}

	if len(b) == 0 {
		return &defaults, nil
	}

	var cfg Config

	err = yaml.Unmarshal(b, &cfg)
	if err != nil {
		return nil, reqErrors.NewConfigError(err, path)
	}

	httpCfg := zeroOr(cfg.Http, defaults.Http)
	proxyCfg := zeroOr(cfg.Proxy, defaults.Proxy)

	merged := &Config{
		UserAgent:        zeroOr(cfg.UserAgent, defaults.UserAgent),
		DisableKeepAlive: cfg.DisableKeepAlive,
		Connections:      zeroOr(cfg.Connections, defaults.Connections),
		SegmentLength:    zeroOr(cfg.SegmentLength, defaults.SegmentLength),
		StateDB:          zeroOr(cfg.StateDB, defaults.StateDB),
		Http: &HttpConfig{
			AuthEnabled: httpCfg.AuthEnabled,
			User:        httpCfg.User,
			Password:    httpCfg.Password,
		},
		Proxy: &ProxyConfig{
			Enabled:     proxyCfg.Enabled,
			Method:      zeroOr(proxyCfg.Method, defaults.Proxy.Method),
			Address:     proxyCfg.Address,
			AuthEnabled: proxyCfg.AuthEnabled,
			User:        proxyCfg.User,
			Password:    proxyCfg.Password,
		},
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}

	logger.Debugf("Loaded config from %s: keepAlive=%v proxy=%v/%s auth=%v",
		path, !merged.DisableKeepAlive, merged.Proxy.Enabled, merged.Proxy.Method, merged.Http.AuthEnabled)

	return merged, nil
}

// Validate rejects combinations no request can be built from.
func (c *Config) Validate() error {
	if c.Proxy == nil {
		return nil
	}

	switch c.Proxy.Method {
	case ProxyMethodTunnel, ProxyMethodGet:
		return nil
	default:
		return reqErrors.NewConfigError(fmt.Errorf("%w: %q", ErrUnknownProxyMethod, c.Proxy.Method), "proxy.method")
	}
}

func DefaultConfig() Config {
	return Config{
		UserAgent:     userAgent,
		Connections:   connections,
		SegmentLength: segmentLength,
		StateDB:       stateDB,
		Http:          &HttpConfig{},
		Proxy: &ProxyConfig{
			Method: proxyMethod,
		},
	}
}

// zeroOr returns def if v is the zero value for its type.
func zeroOr[T any](v, def T) T {
	if reflect.ValueOf(v).IsZero() {
		return def
	}

	return v
}
