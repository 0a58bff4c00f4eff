package transport_test

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reqErrors "github.com/NamanBalaji/segreq/internal/errors"
	seghttp "github.com/NamanBalaji/segreq/internal/http"
	"github.com/NamanBalaji/segreq/internal/request"
	"github.com/NamanBalaji/segreq/internal/segment"
	"github.com/NamanBalaji/segreq/internal/transport"
)

var content = bytes.Repeat([]byte("0123456789abcdef"), 256)

func serveContent(w http.ResponseWriter, r *http.Request) {
	http.ServeContent(w, r, "aria2-1.0.0.tar.bz2", time.Time{}, bytes.NewReader(content))
}

func newProbeBuilder(t *testing.T, rawURL string, s *segment.Segment) (*seghttp.Builder, *request.Request) {
	t.Helper()
	r := request.New()
	require.NoError(t, r.SetURL(rawURL))

	b := seghttp.NewBuilder(seghttp.NewConfig(seghttp.WithUserAgent("aria2")))
	b.SetRequest(r)
	b.SetSegment(s)

	return b, r
}

func secondSegment(t *testing.T) *segment.Segment {
	t.Helper()
	s, err := segment.NewSegment(1, 1024, 1024, 0)
	require.NoError(t, err)
	return s
}

func TestProbe_RangedResume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(serveContent))
	defer srv.Close()

	tests := []struct {
		name      string
		keepAlive bool
		want      seghttp.Range
	}{
		{"bounded on keep-alive", true, seghttp.Range{Start: 1024, End: 2047, EntityLength: 4096}},
		{"open ended without keep-alive", false, seghttp.Range{Start: 1024, End: 4095, EntityLength: 4096}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, r := newProbeBuilder(t, srv.URL+"/archives/aria2-1.0.0.tar.bz2", secondSegment(t))
			r.SetKeepAlive(tt.keepAlive)

			res, err := transport.NewProber().Probe(context.Background(), b, "")
			require.NoError(t, err)

			assert.Equal(t, http.StatusPartialContent, res.StatusCode)
			assert.Equal(t, tt.want, res.Range)
			assert.NoError(t, res.Verdict)
		})
	}
}

func TestProbe_ServerIgnoresRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		_, _ = w.Write(content)
	}))
	defer srv.Close()

	b, _ := newProbeBuilder(t, srv.URL+"/f", secondSegment(t))

	res, err := transport.NewProber().Probe(context.Background(), b, "")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, seghttp.Range{Start: 0, End: 4095, EntityLength: 4096}, res.Range)
	assert.ErrorIs(t, res.Verdict, seghttp.ErrRangeStartMismatch)
}

func TestProbe_EntityLengthChanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(serveContent))
	defer srv.Close()

	b, _ := newProbeBuilder(t, srv.URL+"/f", secondSegment(t))
	b.SetEntityLength(8192)

	res, err := transport.NewProber().Probe(context.Background(), b, "")
	require.NoError(t, err)
	assert.ErrorIs(t, res.Verdict, seghttp.ErrEntityLengthChanged)
}

func TestProbe_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	b, _ := newProbeBuilder(t, srv.URL+"/missing", segment.New())

	_, err := transport.NewProber().Probe(context.Background(), b, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrResourceNotFound)

	status, ok := reqErrors.GetStatusCode(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, reqErrors.IsRetryable(err))
}

func TestProbe_TLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(serveContent))
	defer srv.Close()

	tlsCfg := srv.Client().Transport.(*http.Transport).TLSClientConfig

	b, _ := newProbeBuilder(t, srv.URL+"/f", secondSegment(t))

	res, err := transport.NewProber(transport.WithTLSConfig(tlsCfg)).Probe(context.Background(), b, "")
	require.NoError(t, err)

	assert.Equal(t, http.StatusPartialContent, res.StatusCode)
	assert.NoError(t, res.Verdict)
}

func TestProbe_ProxyGet(t *testing.T) {
	var (
		mu         sync.Mutex
		requestURI string
		proxyAuth  string
	)

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requestURI = r.RequestURI
		proxyAuth = r.Header.Get("Proxy-Authorization")
		mu.Unlock()
		serveContent(w, r)
	}))
	defer proxy.Close()

	const originURL = "http://origin.invalid/archives/aria2-1.0.0.tar.bz2"

	b, r := newProbeBuilder(t, originURL, secondSegment(t))
	r.Proxy = request.ProxyConfig{
		Enabled: true,
		Method:  request.ProxyGet,
		Auth:    request.Credentials{Enabled: true, User: "aria2proxyuser", Password: "aria2proxypasswd"},
	}

	res, err := transport.NewProber().Probe(context.Background(), b, proxy.Listener.Addr().String())
	require.NoError(t, err)
	assert.NoError(t, res.Verdict)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, originURL, requestURI)
	assert.Equal(t, "Basic YXJpYTJwcm94eXVzZXI6YXJpYTJwcm94eXBhc3N3ZA==", proxyAuth)
}

// startTunnelProxy accepts CONNECT requests and, when status is 200, splices
// the connection to the requested authority.
func startTunnelProxy(t *testing.T, status int) (string, <-chan string) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	authorities := make(chan string, 8)

	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}

			go func() {
				defer c.Close()

				br := bufio.NewReader(c)
				req, err := http.ReadRequest(br)
				if err != nil {
					return
				}
				authorities <- req.Host

				if status != http.StatusOK {
					fmt.Fprintf(c, "HTTP/1.1 %d %s\r\nContent-Length: 0\r\n\r\n", status, http.StatusText(status))
					return
				}

				up, err := net.Dial("tcp", req.Host)
				if err != nil {
					fmt.Fprint(c, "HTTP/1.1 502 Bad Gateway\r\nContent-Length: 0\r\n\r\n")
					return
				}
				defer up.Close()

				fmt.Fprint(c, "HTTP/1.1 200 Connection established\r\n\r\n")

				go func() { _, _ = io.Copy(up, br) }()
				_, _ = io.Copy(c, up)
			}()
		}
	}()

	return l.Addr().String(), authorities
}

func TestProbe_Tunnel(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(serveContent))
	defer origin.Close()

	proxyAddr, authorities := startTunnelProxy(t, http.StatusOK)

	b, r := newProbeBuilder(t, origin.URL+"/f", secondSegment(t))
	r.Proxy = request.ProxyConfig{Enabled: true, Method: request.ProxyTunnel}

	res, err := transport.NewProber().Probe(context.Background(), b, proxyAddr)
	require.NoError(t, err)

	assert.Equal(t, strings.TrimPrefix(origin.URL, "http://"), <-authorities)
	assert.Equal(t, http.StatusPartialContent, res.StatusCode)
	assert.NoError(t, res.Verdict)
}

func TestProbe_TunnelRefused(t *testing.T) {
	proxyAddr, _ := startTunnelProxy(t, http.StatusProxyAuthRequired)

	b, r := newProbeBuilder(t, "http://origin.invalid/f", segment.New())
	r.Proxy = request.ProxyConfig{Enabled: true, Method: request.ProxyTunnel}

	_, err := transport.NewProber().Probe(context.Background(), b, proxyAddr)
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrTunnelRefused)
	assert.ErrorIs(t, err, transport.ErrProxyAuthentication)

	status, ok := reqErrors.GetStatusCode(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusProxyAuthRequired, status)
}

func TestProbe_NoProxyAddress(t *testing.T) {
	b, r := newProbeBuilder(t, "http://origin.invalid/f", segment.New())
	r.Proxy = request.ProxyConfig{Enabled: true, Method: request.ProxyGet}

	_, err := transport.NewProber().Probe(context.Background(), b, "")
	assert.ErrorIs(t, err, transport.ErrNoProxyAddress)
	assert.True(t, reqErrors.IsConfigError(err))
}

func TestProbe_NoRequest(t *testing.T) {
	_, err := transport.NewProber().Probe(context.Background(), seghttp.NewBuilder(nil), "")
	assert.ErrorIs(t, err, seghttp.ErrNoRequest)
}

func TestProbe_FtpNeedsGetProxy(t *testing.T) {
	b, _ := newProbeBuilder(t, "ftp://localhost/f", segment.New())

	_, err := transport.NewProber().Probe(context.Background(), b, "")
	assert.ErrorIs(t, err, transport.ErrUnsupportedScheme)
}

func TestProbe_RedirectCarriesRefererAndCookies(t *testing.T) {
	var (
		mu        sync.Mutex
		gotCookie string
		gotRef    string
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "sid=abc; Path=/")
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotCookie = r.Header.Get("Cookie")
		gotRef = r.Header.Get("Referer")
		mu.Unlock()
		serveContent(w, r)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	b, r := newProbeBuilder(t, srv.URL+"/old", segment.New())

	res, err := transport.NewProber().Probe(context.Background(), b, "")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Redirects)
	assert.Equal(t, srv.URL+"/new", res.URL)
	assert.Equal(t, srv.URL+"/old", r.Referer())
	assert.Equal(t, 1, r.CookieJar().Len())
	assert.NoError(t, res.Verdict)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "sid=abc;", gotCookie)
	assert.Equal(t, srv.URL+"/old", gotRef)
}

func TestProbe_TooManyRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer srv.Close()

	b, _ := newProbeBuilder(t, srv.URL+"/loop", segment.New())

	_, err := transport.NewProber().Probe(context.Background(), b, "")
	assert.ErrorIs(t, err, transport.ErrTooManyRedirects)

	var reqErr *reqErrors.RequestError
	require.True(t, reqErrors.As(err, &reqErr))
	assert.Len(t, reqErr.Details["history"], 6)
}

func TestProbe_DialFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	b, _ := newProbeBuilder(t, "http://"+addr+"/f", segment.New())

	_, err = transport.NewProber(transport.WithTimeout(time.Second)).Probe(context.Background(), b, "")
	require.Error(t, err)
	assert.True(t, reqErrors.IsNetworkError(err))
	assert.ErrorIs(t, err, transport.ErrNetworkProblem)
	assert.True(t, reqErrors.IsRetryable(err))
}

func TestProbe_ContextCanceled(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	// accepts but never answers
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	b, _ := newProbeBuilder(t, "http://"+l.Addr().String()+"/f", segment.New())

	_, err = transport.NewProber().Probe(ctx, b, "")
	require.Error(t, err)
	assert.True(t, reqErrors.IsNetworkError(err))
}
