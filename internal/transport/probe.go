package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/NamanBalaji/segreq/internal/cookie"
	reqErrors "github.com/NamanBalaji/segreq/internal/errors"
	seghttp "github.com/NamanBalaji/segreq/internal/http"
	"github.com/NamanBalaji/segreq/internal/logger"
	"github.com/NamanBalaji/segreq/internal/request"
)

const (
	defaultConnectTimeout = 30 * time.Second
	keepAlivePeriod       = 30 * time.Second
	maxRedirects          = 5
)

// Result is what a server answered to one segment request.
type Result struct {
	URL        string
	StatusCode int
	Header     http.Header
	Range      seghttp.Range
	Redirects  int
	// Verdict is nil when the response may be appended to the written bytes.
	Verdict    error
}

type Option func(*Prober)

// WithTimeout bounds the dial of each connection.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		p.dialer.Timeout = d
	}
}

// WithTLSConfig sets the base TLS configuration for https targets. The
// server name is always filled from the target.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(p *Prober) {
		p.tlsConfig = cfg
	}
}

// Prober sends the request a Builder renders and reads back only the status
// line and headers. The body is never read.
type Prober struct {
	dialer    *net.Dialer
	tlsConfig *tls.Config
}

func NewProber(opts ...Option) *Prober {
	p := &Prober{
		dialer: &net.Dialer{
			Timeout:   defaultConnectTimeout,
			KeepAlive: keepAlivePeriod,
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Probe sends the builder's request, through proxyAddr when the request's
// proxy is enabled, following redirects on the request's history. Cookies set
// by the server are added to the request's jar.
func (p *Prober) Probe(ctx context.Context, b *seghttp.Builder, proxyAddr string) (*Result, error) {
	r := b.Request()
	if r == nil {
		return nil, reqErrors.NewContractError(seghttp.ErrNoRequest, "")
	}

	if r.Proxy.Enabled && proxyAddr == "" {
		return nil, reqErrors.NewConfigError(ErrNoProxyAddress, r.CurrentURL())
	}

	for redirects := 0; ; redirects++ {
		resp, err := p.roundTrip(ctx, b, proxyAddr)
		if err != nil {
			return nil, err
		}

		if isRedirect(resp.StatusCode) {
			if redirects >= maxRedirects {
				err := reqErrors.NewHTTPError(ErrTooManyRedirects, r.CurrentURL(), resp.StatusCode)
				return nil, reqErrors.WithDetails(err, map[string]interface{}{"history": r.History()})
			}

			next, err := resolveLocation(r.CurrentURL(), resp.Header.Get("Location"))
			if err != nil {
				return nil, reqErrors.NewHTTPError(err, r.CurrentURL(), resp.StatusCode)
			}

			logger.Debugf("Following %d redirect from %s to %s", resp.StatusCode, r.CurrentURL(), next)

			if err := r.Redirect(next); err != nil {
				return nil, reqErrors.NewHTTPError(fmt.Errorf("%w: %w", ErrBadRedirect, err), next, resp.StatusCode)
			}

			continue
		}

		if classified := ClassifyHTTPError(resp.StatusCode); classified != nil {
			logger.Warnf("Server answered %d for %s", resp.StatusCode, r.CurrentURL())
			return nil, reqErrors.NewHTTPError(classified, r.CurrentURL(), resp.StatusCode)
		}

		rng, err := seghttp.RangeFromHeader(resp.Header)
		if err != nil {
			return nil, reqErrors.NewHTTPError(err, r.CurrentURL(), resp.StatusCode)
		}

		res := &Result{
			URL:        r.CurrentURL(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Range:      rng,
			Redirects:  redirects,
			Verdict:    b.CheckRange(rng),
		}

		logger.Debugf("Probe of %s: status=%d range=%s verdict=%v", res.URL, res.StatusCode, res.Range, res.Verdict)

		return res, nil
	}
}

// roundTrip performs one request on a fresh connection and returns the
// response headers. The body is never read.
func (p *Prober) roundTrip(ctx context.Context, b *seghttp.Builder, proxyAddr string) (*http.Response, error) {
	r := b.Request()

	target, err := r.Target()
	if err != nil {
		return nil, reqErrors.NewConfigError(err, r.CurrentURL())
	}

	useProxy := r.Proxy.Enabled
	tunnel := useProxy && r.Proxy.Method == request.ProxyTunnel

	if !target.Secure() && target.Scheme != "http" && (!useProxy || tunnel) {
		return nil, reqErrors.NewConfigError(fmt.Errorf("%w: %s", ErrUnsupportedScheme, target.Scheme), r.CurrentURL())
	}

	addr := target.HostPort()
	if useProxy {
		addr = proxyAddr
	}

	conn, err := p.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, networkError(err, addr)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if tunnel {
		if err := p.openTunnel(b, conn); err != nil {
			return nil, err
		}
	}

	if target.Secure() && (!useProxy || tunnel) {
		cfg := &tls.Config{}
		if p.tlsConfig != nil {
			cfg = p.tlsConfig.Clone()
		}
		cfg.ServerName = target.Host

		tlsConn := tls.Client(conn, cfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return nil, networkError(err, target.HostPort())
		}
		conn = tlsConn
	}

	text, err := b.CreateRequest()
	if err != nil {
		return nil, err
	}

	if _, err := conn.Write([]byte(text)); err != nil {
		return nil, networkError(err, addr)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), &http.Request{Method: http.MethodGet})
	if err != nil {
		return nil, networkError(err, addr)
	}
	// The body is dropped with the connection; closing it would drain it.
	resp.Body = http.NoBody

	storeCookies(r.CookieJar(), resp, target)

	return resp, nil
}

func (p *Prober) openTunnel(b *seghttp.Builder, conn net.Conn) error {
	text, err := b.CreateProxyRequest()
	if err != nil {
		return err
	}

	if _, err := conn.Write([]byte(text)); err != nil {
		return networkError(err, conn.RemoteAddr().String())
	}

	// CONNECT has no body, so nothing is buffered past the headers.
	resp, err := http.ReadResponse(bufio.NewReader(conn), &http.Request{Method: http.MethodConnect})
	if err != nil {
		return networkError(err, conn.RemoteAddr().String())
	}

	if resp.StatusCode != http.StatusOK {
		cause := ClassifyHTTPError(resp.StatusCode)
		if cause == nil {
			cause = ErrTunnelRefused
		}

		return reqErrors.NewHTTPError(fmt.Errorf("%w: %w", ErrTunnelRefused, cause), conn.RemoteAddr().String(), resp.StatusCode)
	}

	logger.Debugf("Tunnel open via %s", conn.RemoteAddr())

	return nil
}

func storeCookies(jar *cookie.Jar, resp *http.Response, target request.Target) {
	if jar == nil {
		return
	}

	for _, line := range resp.Header.Values("Set-Cookie") {
		c, err := cookie.Parse(line, target.Host, target.Path())
		if err != nil {
			logger.Warnf("Ignoring cookie from %s: %v", target.Host, err)
			continue
		}

		jar.Add(c)
	}
}

func networkError(err error, addr string) error {
	classified := ClassifyError(err)
	return reqErrors.NewNetworkError(fmt.Errorf("%w: %w", classified, err), addr, isRetryable(classified))
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

func resolveLocation(current, location string) (string, error) {
	if location == "" {
		return "", ErrBadRedirect
	}

	base, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadRedirect, err)
	}

	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadRedirect, err)
	}

	return base.ResolveReference(ref).String(), nil
}
