package http

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"github.com/NamanBalaji/segreq/internal/cookie"
	reqErrors "github.com/NamanBalaji/segreq/internal/errors"
	"github.com/NamanBalaji/segreq/internal/request"
	"github.com/NamanBalaji/segreq/internal/segment"
)

const crlf = "\r\n"

var (
	ErrNoRequest              = errors.New("no request attached")
	ErrNoSegment              = errors.New("no segment attached")
	ErrUnsupportedProxyMethod = errors.New("unsupported proxy method")
)

// Builder turns one segment fetch into request header text and judges the
// range the server answered with. It never mutates its inputs, so builders
// for different segments can run concurrently.
type Builder struct {
	cfg          *Config
	segment      *segment.Segment
	request      *request.Request
	entityLength int64
}

func NewBuilder(cfg *Config) *Builder {
	if cfg == nil {
		cfg = defaultConfig()
	}

	return &Builder{cfg: cfg}
}

func (b *Builder) SetSegment(s *segment.Segment) {
	b.segment = s
}

func (b *Builder) Segment() *segment.Segment {
	return b.segment
}

func (b *Builder) SetRequest(r *request.Request) {
	b.request = r
}

func (b *Builder) Request() *request.Request {
	return b.request
}

// SetEntityLength records the total resource size confirmed by an earlier
// response. Zero means unknown.
func (b *Builder) SetEntityLength(n int64) {
	b.entityLength = n
}

func (b *Builder) EntityLength() int64 {
	return b.entityLength
}

// StartByte is the offset of the next byte to fetch, 0 without a segment.
func (b *Builder) StartByte() int64 {
	if b.segment == nil {
		return 0
	}

	return b.segment.Position()
}

// EndByte is the last byte to request, or 0 for an open-ended range. An
// explicit end is only safe on a persistent connection: without one a dropped
// connection looks the same as reaching the end.
func (b *Builder) EndByte() int64 {
	if b.segment == nil || b.request == nil || !b.request.KeepAlive() || b.segment.IsUnbounded() {
		return 0
	}

	return b.segment.EndPosition()
}

// CreateRequest renders the GET request for the attached segment.
func (b *Builder) CreateRequest() (string, error) {
	target, err := b.target()
	if err != nil {
		return "", err
	}

	if b.segment == nil {
		return "", reqErrors.NewContractError(ErrNoSegment, b.request.CurrentURL())
	}

	directGet, err := b.directGet()
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	requestTarget := target.RequestPath()
	if directGet {
		requestTarget = target.AbsoluteURI()
	}

	sb.WriteString("GET " + requestTarget + " HTTP/1.1" + crlf)
	writeHeader(&sb, "User-Agent", b.cfg.UserAgent)
	writeHeader(&sb, "Accept", "*/*")
	writeHeader(&sb, "Host", hostHeader(target))
	writeHeader(&sb, "Pragma", "no-cache")
	writeHeader(&sb, "Cache-Control", "no-cache")

	if !b.request.KeepAlive() && !directGet {
		writeHeader(&sb, "Connection", "close")
	}

	if start := b.StartByte(); start > 0 {
		rangeValue := "bytes=" + strconv.FormatInt(start, 10) + "-"
		if end := b.EndByte(); end > 0 {
			rangeValue += strconv.FormatInt(end, 10)
		}
		writeHeader(&sb, "Range", rangeValue)
	}

	if directGet {
		writeHeader(&sb, "Proxy-Connection", "close")
		if proxyAuth := b.request.Proxy.Auth; proxyAuth.Enabled {
			writeHeader(&sb, "Proxy-Authorization", basicAuth(proxyAuth))
		}
	}

	if auth := b.request.Auth; auth.Enabled {
		writeHeader(&sb, "Authorization", basicAuth(auth))
	}

	if referer := b.request.Referer(); referer != "" {
		writeHeader(&sb, "Referer", referer)
	}

	if jar := b.request.CookieJar(); jar != nil {
		matched := jar.Criteria(target.Host, target.Path(), target.Secure())
		if len(matched) > 0 {
			writeHeader(&sb, "Cookie", cookie.HeaderValue(matched))
		}
	}

	sb.WriteString(crlf)

	return sb.String(), nil
}

// CreateProxyRequest renders the CONNECT request that opens a tunnel to the
// target through the proxy. The port is always explicit.
func (b *Builder) CreateProxyRequest() (string, error) {
	target, err := b.target()
	if err != nil {
		return "", err
	}

	authority := target.HostPort()

	var sb strings.Builder
	sb.WriteString("CONNECT " + authority + " HTTP/1.1" + crlf)
	writeHeader(&sb, "User-Agent", b.cfg.UserAgent)
	writeHeader(&sb, "Proxy-Connection", "close")
	writeHeader(&sb, "Host", authority)
	sb.WriteString(crlf)

	return sb.String(), nil
}

func (b *Builder) target() (request.Target, error) {
	if b.request == nil {
		return request.Target{}, reqErrors.NewContractError(ErrNoRequest, "")
	}

	target, err := b.request.Target()
	if err != nil {
		return request.Target{}, reqErrors.NewConfigError(err, b.request.CurrentURL())
	}

	return target, nil
}

// directGet reports whether the proxy is asked for the absolute URI itself.
func (b *Builder) directGet() (bool, error) {
	proxy := b.request.Proxy
	if !proxy.Enabled {
		return false, nil
	}

	switch proxy.Method {
	case request.ProxyTunnel:
		return false, nil
	case request.ProxyGet:
		return true, nil
	default:
		return false, reqErrors.NewConfigError(ErrUnsupportedProxyMethod, proxy.Method.String())
	}
}

func writeHeader(sb *strings.Builder, name, value string) {
	sb.WriteString(name + ": " + value + crlf)
}

// hostHeader omits the port when it is the default for the scheme's security.
func hostHeader(target request.Target) string {
	host := target.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	if (target.Secure() && target.Port == 443) || (!target.Secure() && target.Port == 80) {
		return host
	}

	return host + ":" + strconv.Itoa(target.Port)
}

func basicAuth(c request.Credentials) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.User+":"+c.Password))
}
