package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	reqErrors "github.com/NamanBalaji/segreq/internal/errors"
	"github.com/NamanBalaji/segreq/internal/logger"
)

const EnvFile = ".env"

const (
	envUserAgent        = "SEGREQ_USER_AGENT"
	envDisableKeepAlive = "SEGREQ_DISABLE_KEEP_ALIVE"
	envStateDB          = "SEGREQ_STATE_DB"
	envHTTPUser         = "SEGREQ_HTTP_USER"
	envHTTPPassword     = "SEGREQ_HTTP_PASSWORD"
	envProxyAddress     = "SEGREQ_PROXY_ADDRESS"
	envProxyMethod      = "SEGREQ_PROXY_METHOD"
	envProxyUser        = "SEGREQ_PROXY_USER"
	envProxyPassword    = "SEGREQ_PROXY_PASSWORD"
)

// ApplyEnv overlays SEGREQ_* settings read from envFile and the process
// environment onto c. Process variables win over the file; a missing file is
// not an error. Setting a user or a proxy address enables the matching auth or
// proxy.
func (c *Config) ApplyEnv(envFile string) error {
	vars := map[string]string{}

	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			vars = fileVars
		case !errors.Is(err, fs.ErrNotExist):
			return reqErrors.NewConfigError(err, envFile)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}

		v, ok := vars[key]
		return v, ok
	}

	if c.Http == nil {
		c.Http = &HttpConfig{}
	}

	if c.Proxy == nil {
		c.Proxy = &ProxyConfig{Method: proxyMethod}
	}

	if v, ok := lookup(envUserAgent); ok && v != "" {
		c.UserAgent = v
	}

	if v, ok := lookup(envDisableKeepAlive); ok {
		disable, err := strconv.ParseBool(v)
		if err != nil {
			return reqErrors.NewConfigError(fmt.Errorf("%s: %w", envDisableKeepAlive, err), envFile)
		}
		c.DisableKeepAlive = disable
	}

	if v, ok := lookup(envStateDB); ok && v != "" {
		c.StateDB = v
	}

	if v, ok := lookup(envHTTPUser); ok {
		c.Http.AuthEnabled = true
		c.Http.User = v
	}

	if v, ok := lookup(envHTTPPassword); ok {
		c.Http.Password = v
	}

	if v, ok := lookup(envProxyAddress); ok && v != "" {
		c.Proxy.Enabled = true
		c.Proxy.Address = v
	}

	if v, ok := lookup(envProxyMethod); ok && v != "" {
		c.Proxy.Method = v
	}

	if v, ok := lookup(envProxyUser); ok {
		c.Proxy.AuthEnabled = true
		c.Proxy.User = v
	}

	if v, ok := lookup(envProxyPassword); ok {
		c.Proxy.Password = v
	}

	logger.Debugf("Applied environment overrides (file %q, %d entries)", envFile, len(vars))

	return c.Validate()
}
