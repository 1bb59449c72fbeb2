// Package transport wraps every outbound identity API request: it attaches
// the bearer credential on the way out and routes a 401 through the session
// invalidation hook on the way back.
package transport

import (
	"net/http"
	"strings"
	"sync"

	"dukan.org/internal/credstore"
	"dukan.org/internal/ids"
	"dukan.org/internal/obs"
)

const (
	authHeader      = "Authorization"
	bearer          = "Bearer "
	requestIDHeader = "X-Request-Id"
)

// Endpoints that must never carry a bearer token: credential exchange and the
// anonymous password-reset flow.
var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/refresh",
	"/v1/auth/password/request-reset",
	"/v1/auth/password/verify-reset",
	"/v1/auth/password/reset",
	"/healthz",
	"/metrics",
}

// Interceptor is an http.RoundTripper. It is side-effect free for any 2xx
// response; the only state it touches is the credential store (read-only) and
// the registered 401 hook. It never retries: a 401 invalidates the session
// and the original call fails (see DESIGN.md on the refresh decision).
type Interceptor struct {
	base  http.RoundTripper
	creds credstore.Store

	mu             sync.Mutex
	onUnauthorized func()
}

// Option configures the interceptor.
type Option func(*Interceptor)

// WithBase overrides the underlying round tripper (default
// http.DefaultTransport).
func WithBase(rt http.RoundTripper) Option {
	return func(t *Interceptor) {
		if rt != nil {
			t.base = rt
		}
	}
}

// New builds an interceptor reading tokens from creds.
func New(creds credstore.Store, opts ...Option) *Interceptor {
	t := &Interceptor{base: http.DefaultTransport, creds: creds}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnUnauthorized registers the session invalidation hook. Registered after
// construction because the controller is built on top of the transport.
func (t *Interceptor) OnUnauthorized(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUnauthorized = fn
}

// RoundTrip implements http.RoundTripper.
func (t *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if out.Header.Get(requestIDHeader) == "" {
		out.Header.Set(requestIDHeader, ids.RequestID())
	}
	public := isPublicPath(out.URL.Path)
	if !public {
		if pair := t.creds.Read(); pair != nil && pair.AccessToken != "" {
			out.Header.Set(authHeader, bearer+pair.AccessToken)
		}
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !public {
		t.mu.Lock()
		fn := t.onUnauthorized
		t.mu.Unlock()
		if fn != nil {
			obs.Event("transport.unauthorized", map[string]any{
				"path":       out.URL.Path,
				"request_id": out.Header.Get(requestIDHeader),
			})
			fn()
		}
	}
	return resp, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return strings.HasPrefix(path, "/assets/")
}
