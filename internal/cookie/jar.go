package cookie

import (
	"strings"
	"sync"
)

// Jar holds cookies in insertion order. Response handlers on other
// connections may Add while a request is being built.
type Jar struct {
	mu      sync.RWMutex
	cookies []Cookie
}

func NewJar() *Jar {
	return &Jar{}
}

// Add appends cookies to the jar.
func (j *Jar) Add(cookies ...Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.cookies = append(j.cookies, cookies...)
}

func (j *Jar) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return len(j.cookies)
}

// Snapshot returns a copy of the jar contents in insertion order.
func (j *Jar) Snapshot() []Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]Cookie, len(j.cookies))
	copy(out, j.cookies)

	return out
}

// Criteria returns the cookies matching host, path and scheme security in
// insertion order.
func (j *Jar) Criteria(host, path string, secure bool) []Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var matched []Cookie
	for _, c := range j.cookies {
		if c.Match(host, path, secure) {
			matched = append(matched, c)
		}
	}

	return matched
}

// HeaderValue renders cookies as a Cookie header value, or "" when empty.
func HeaderValue(cookies []Cookie) string {
	var sb strings.Builder
	for _, c := range cookies {
		sb.WriteString(c.String())
	}

	return sb.String()
}
