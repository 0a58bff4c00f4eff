package cookie

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrInvalidCookie = errors.New("invalid Set-Cookie value")

// Cookie is a single name/value pair scoped to a domain and path.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Path   string `json:"path"`
	Domain string `json:"domain"`
	Secure bool   `json:"secure"`
}

func New(name, value, path, domain string, secure bool) Cookie {
	return Cookie{
		Name:   name,
		Value:  value,
		Path:   path,
		Domain: domain,
		Secure: secure,
	}
}

// Parse builds a Cookie from a Set-Cookie header value received for host and
// requestPath. A missing Domain defaults to host, a missing Path to the
// directory of requestPath.
func Parse(setCookie, host, requestPath string) (Cookie, error) {
	hc, err := http.ParseSetCookie(setCookie)
	if err != nil {
		return Cookie{}, fmt.Errorf("%w: %w", ErrInvalidCookie, err)
	}

	c := Cookie{
		Name:   hc.Name,
		Value:  hc.Value,
		Path:   hc.Path,
		Domain: hc.Domain,
		Secure: hc.Secure,
	}

	if c.Domain == "" {
		c.Domain = host
	}

	if c.Path == "" || !strings.HasPrefix(c.Path, "/") {
		c.Path = defaultPath(requestPath)
	}

	return c, nil
}

// Match reports whether c should be sent with a request to host/path over a
// secure or plain scheme.
func (c Cookie) Match(host, path string, secure bool) bool {
	if c.Secure && !secure {
		return false
	}

	return domainMatch(host, c.Domain) && pathMatch(path, c.Path)
}

func (c Cookie) String() string {
	return c.Name + "=" + c.Value + ";"
}

func domainMatch(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))

	if domain == "" {
		return false
	}

	if host == domain {
		return true
	}

	return strings.HasSuffix(host, "."+domain)
}

// pathMatch requires the cookie path to be a prefix of the request path ending
// on a '/' boundary or at the end of the request path.
func pathMatch(requestPath, cookiePath string) bool {
	if requestPath == "" {
		requestPath = "/"
	}

	if cookiePath == "" {
		cookiePath = "/"
	}

	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}

	if len(requestPath) == len(cookiePath) || strings.HasSuffix(cookiePath, "/") {
		return true
	}

	return requestPath[len(cookiePath)] == '/'
}

func defaultPath(requestPath string) string {
	i := strings.LastIndex(requestPath, "/")
	if i <= 0 {
		return "/"
	}

	return requestPath[:i]
}
