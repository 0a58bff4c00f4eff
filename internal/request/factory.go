package request

import (
	"github.com/NamanBalaji/segreq/internal/config"
	"github.com/NamanBalaji/segreq/internal/cookie"
	reqErrors "github.com/NamanBalaji/segreq/internal/errors"
	"github.com/NamanBalaji/segreq/internal/logger"
)

// Factory creates Requests that share one configuration and cookie jar.
type Factory struct {
	keepAlive bool
	auth      Credentials
	proxy     ProxyConfig
	jar       *cookie.Jar
}

// NewFactory converts cfg once into the settings every Request receives.
func NewFactory(cfg *config.Config) (*Factory, error) {
	f := &Factory{
		keepAlive: true,
		jar:       cookie.NewJar(),
	}

	if cfg == nil {
		return f, nil
	}

	f.keepAlive = !cfg.DisableKeepAlive

	if cfg.Http != nil {
		f.auth = Credentials{
			Enabled:  cfg.Http.AuthEnabled,
			User:     cfg.Http.User,
			Password: cfg.Http.Password,
		}
	}

	if cfg.Proxy != nil {
		method, err := ParseProxyMethod(cfg.Proxy.Method)
		if err != nil {
			return nil, reqErrors.NewConfigError(err, "proxy.method")
		}

		f.proxy = ProxyConfig{
			Enabled: cfg.Proxy.Enabled,
			Method:  method,
			Auth: Credentials{
				Enabled:  cfg.Proxy.AuthEnabled,
				User:     cfg.Proxy.User,
				Password: cfg.Proxy.Password,
			},
		}
	}

	logger.Debugf("Request factory ready: keepAlive=%v auth=%v proxy=%v method=%s",
		f.keepAlive, f.auth.Enabled, f.proxy.Enabled, f.proxy.Method)

	return f, nil
}

// Create returns a new Request without a URL.
func (f *Factory) Create() *Request {
	r := New()
	r.SetKeepAlive(f.keepAlive)
	r.SetCookieJar(f.jar)
	r.Auth = f.auth
	r.Proxy = f.proxy

	return r
}

// Jar is the cookie jar shared by every Request this factory creates.
func (f *Factory) Jar() *cookie.Jar {
	return f.jar
}

// CreateFor returns a new Request pointed at rawURL.
func (f *Factory) CreateFor(rawURL string) (*Request, error) {
	r := f.Create()
	if err := r.SetURL(rawURL); err != nil {
		return nil, reqErrors.NewConfigError(err, rawURL)
	}

	return r, nil
}
