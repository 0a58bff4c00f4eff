package request

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/NamanBalaji/segreq/internal/cookie"
)

var (
	ErrNoURL              = errors.New("no target URL")
	ErrInvalidURL         = errors.New("invalid URL")
	ErrMissingHost        = errors.New("target URL has no host")
	ErrMissingPort        = errors.New("target URL has no port and its scheme has no default")
	ErrUnknownProxyMethod = errors.New("unknown proxy method")
)

// ProxyMethod selects how an HTTP proxy is engaged.
type ProxyMethod uint8

const (
	// ProxyTunnel opens a CONNECT tunnel and then talks to the origin through it.
	ProxyTunnel ProxyMethod = iota
	// ProxyGet asks the proxy for the absolute URI directly.
	ProxyGet
)

func (m ProxyMethod) String() string {
	switch m {
	case ProxyTunnel:
		return "tunnel"
	case ProxyGet:
		return "get"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// Valid reports whether m is one of the declared methods.
func (m ProxyMethod) Valid() bool {
	return m == ProxyTunnel || m == ProxyGet
}

// ParseProxyMethod maps the configuration spelling to a ProxyMethod.
func ParseProxyMethod(s string) (ProxyMethod, error) {
	switch strings.ToLower(s) {
	case "tunnel", "":
		return ProxyTunnel, nil
	case "get":
		return ProxyGet, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownProxyMethod, s)
	}
}

// Credentials are Basic authentication settings.
type Credentials struct {
	Enabled  bool
	User     string
	Password string
}

// ProxyConfig describes the HTTP proxy in front of the origin.
type ProxyConfig struct {
	Enabled bool
	Method  ProxyMethod
	Auth    Credentials
}

// Request describes the resource being fetched: its redirect history,
// connection policy, credentials, proxy and cookies.
type Request struct {
	urls      []string
	keepAlive bool
	Auth      Credentials
	Proxy     ProxyConfig
	jar       *cookie.Jar
}

// New returns a Request with keep-alive enabled and an empty cookie jar.
func New() *Request {
	return &Request{
		keepAlive: true,
		jar:       cookie.NewJar(),
	}
}

// SetURL starts a fresh history containing only rawURL.
func (r *Request) SetURL(rawURL string) error {
	if rawURL == "" {
		return ErrNoURL
	}

	if _, err := parse(rawURL); err != nil {
		return err
	}

	r.urls = []string{rawURL}

	return nil
}

// Redirect appends rawURL to the history, making it current.
func (r *Request) Redirect(rawURL string) error {
	if len(r.urls) == 0 {
		return r.SetURL(rawURL)
	}

	if _, err := parse(rawURL); err != nil {
		return err
	}

	r.urls = append(r.urls, rawURL)

	return nil
}

// ResetURL drops every redirect and returns to the original URL.
func (r *Request) ResetURL() {
	if len(r.urls) > 1 {
		r.urls = r.urls[:1:1]
	}
}

func (r *Request) CurrentURL() string {
	if len(r.urls) == 0 {
		return ""
	}

	return r.urls[len(r.urls)-1]
}

func (r *Request) OriginalURL() string {
	if len(r.urls) == 0 {
		return ""
	}

	return r.urls[0]
}

// Referer is the URL visited immediately before the current one.
func (r *Request) Referer() string {
	if len(r.urls) < 2 {
		return ""
	}

	return r.urls[len(r.urls)-2]
}

// History returns a copy of the visited URLs, oldest first.
func (r *Request) History() []string {
	out := make([]string, len(r.urls))
	copy(out, r.urls)

	return out
}

func (r *Request) KeepAlive() bool {
	return r.keepAlive
}

func (r *Request) SetKeepAlive(keepAlive bool) {
	r.keepAlive = keepAlive
}

func (r *Request) CookieJar() *cookie.Jar {
	return r.jar
}

func (r *Request) SetCookieJar(jar *cookie.Jar) {
	r.jar = jar
}

// Target is the parsed form of the current URL.
type Target struct {
	URL    *url.URL
	Scheme string
	Host   string
	Port   int
}

// Secure reports whether the target scheme is TLS-wrapped HTTP.
func (t Target) Secure() bool {
	return t.Scheme == "https"
}

// RequestPath is the origin-form request target: path plus query.
func (t Target) RequestPath() string {
	p := t.URL.EscapedPath()
	if p == "" {
		p = "/"
	}

	if t.URL.RawQuery != "" {
		p += "?" + t.URL.RawQuery
	}

	return p
}

// Path is the decoded path used for cookie scoping.
func (t Target) Path() string {
	if t.URL.Path == "" {
		return "/"
	}

	return t.URL.Path
}

// AbsoluteURI is the absolute-form request target, without userinfo or fragment.
func (t Target) AbsoluteURI() string {
	u := *t.URL
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}

	return u.String()
}

// HostPort is host:port with the port always present.
func (t Target) HostPort() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Target parses the current URL.
func (r *Request) Target() (Target, error) {
	current := r.CurrentURL()
	if current == "" {
		return Target{}, ErrNoURL
	}

	u, err := parse(current)
	if err != nil {
		return Target{}, err
	}

	host := u.Hostname()
	if host == "" {
		return Target{}, fmt.Errorf("%w: %s", ErrMissingHost, current)
	}

	port := DefaultPort(u.Scheme)
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return Target{}, fmt.Errorf("%w: bad port in %s", ErrInvalidURL, current)
		}
	}

	if port == 0 {
		return Target{}, fmt.Errorf("%w: %s", ErrMissingPort, current)
	}

	return Target{
		URL:    u,
		Scheme: strings.ToLower(u.Scheme),
		Host:   host,
		Port:   port,
	}, nil
}

// DefaultPort returns the well-known port for scheme, or 0 when unknown.
func DefaultPort(scheme string) int {
	switch strings.ToLower(scheme) {
	case "http":
		return 80
	case "https":
		return 443
	case "ftp":
		return 21
	default:
		return 0
	}
}

func parse(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme in %s", ErrInvalidURL, rawURL)
	}

	return u, nil
}
