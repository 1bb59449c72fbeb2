// Package session owns the in-memory session state and the two-factor,
// email-verification and password-reset sub-machines. The controller drives
// credential store writes and identity gateway calls; it is the only writer
// of session state.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"dukan.org/internal/credstore"
	"dukan.org/internal/gateway"
	"dukan.org/internal/obs"
)

const sessionExpired = "session expired"

// Gateway is the slice of the identity API the controller drives.
type Gateway interface {
	Login(ctx context.Context, email, password string) (gateway.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (gateway.TokenPair, error)
	CurrentUser(ctx context.Context) (gateway.Principal, error)
	Setup2FA(ctx context.Context) (gateway.TwoFactorSetup, error)
	Verify2FA(ctx context.Context, code string) error
	Enable2FA(ctx context.Context) error
	Disable2FA(ctx context.Context) error
	SendVerificationEmail(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, code string) error
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyResetCode(ctx context.Context, code string) error
	ResetPassword(ctx context.Context, code, newPassword string) error
}

// Controller serializes all session mutations. The mutex is never held
// across a gateway call; every command records the generation current when
// it was issued and re-checks it on resumption, so a command superseded by a
// newer one (or by logout/invalidation) cannot write stale state.
type Controller struct {
	mu    sync.Mutex
	creds credstore.Store
	gw    Gateway

	phase       Phase
	principal   *gateway.Principal
	loading     bool
	lastError   string
	sessionGen  uint64
	invalidated bool

	twoFactor twoFactorState
	email     emailState
	reset     resetState

	now        func() time.Time
	loginLimit *rate.Limiter
	logf       func(event string, fields map[string]any)
}

type twoFactorState struct {
	phase   TwoFactorPhase
	setup   *gateway.TwoFactorSetup
	gen     uint64
	loading bool
	err     string
}

type emailState struct {
	phase   EmailPhase
	gen     uint64
	loading bool
	err     string
}

type resetState struct {
	phase   ResetPhase
	gen     uint64
	loading bool
	err     string
}

// Option configures the controller.
type Option func(*Controller)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(c *Controller) {
		if fn != nil {
			c.now = fn
		}
	}
}

// WithLoginRate caps local login attempts; a looping caller hits
// ErrRateLimited before the wire does.
func WithLoginRate(limit rate.Limit, burst int) Option {
	return func(c *Controller) {
		if limit > 0 && burst > 0 {
			c.loginLimit = rate.NewLimiter(limit, burst)
		}
	}
}

// WithLogger overrides the structured event sink.
func WithLogger(fn func(event string, fields map[string]any)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.logf = fn
		}
	}
}

// New constructs a controller around an injected store and gateway. A pair
// surviving in the store does not make the session authenticated: the
// principal must be re-derived through Resume.
func New(creds credstore.Store, gw Gateway, opts ...Option) *Controller {
	c := &Controller{
		creds: creds,
		gw:    gw,
		now:   time.Now,
		logf:  obs.Event,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current primary-machine state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{Phase: c.phase, Loading: c.loading, Error: c.lastError}
	if c.principal != nil {
		p := *c.principal
		snap.Principal = &p
	}
	if pair := c.creds.Read(); pair != nil && pair.AccessToken != "" {
		snap.TokenExpiresAt = tokenExpiry(pair.AccessToken)
	}
	return snap
}

// Principal returns the authenticated principal, or nil.
func (c *Controller) Principal() *gateway.Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.principal == nil {
		return nil
	}
	p := *c.principal
	return &p
}

// Login exchanges credentials for a token pair, then resolves the principal.
// A token without a resolvable principal is unusable, so a failed principal
// fetch clears the freshly written pair and the whole command fails.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	if c.loginLimit != nil && !c.loginLimit.Allow() {
		return ErrRateLimited
	}

	c.mu.Lock()
	c.sessionGen++
	gen := c.sessionGen
	c.phase = Authenticating
	c.principal = nil
	c.loading = true
	c.lastError = ""
	c.mu.Unlock()

	pair, err := c.gw.Login(ctx, email, password)
	if err != nil {
		c.failLogin(gen, err)
		return err
	}

	c.mu.Lock()
	if gen != c.sessionGen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	// Token acquired, principal pending.
	c.creds.Write(credstore.Pair{AccessToken: pair.Token, RefreshToken: pair.RefreshToken})
	c.mu.Unlock()

	principal, err := c.gw.CurrentUser(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.sessionGen {
		if err != nil {
			return err
		}
		return ErrSuperseded
	}
	c.loading = false
	if err != nil {
		c.creds.Clear()
		c.phase = Unauthenticated
		c.principal = nil
		c.lastError = describe(err)
		obs.LoginsTotal.WithLabelValues("error").Inc()
		c.logf("session.login_failed", map[string]any{"stage": "current_user", "error": c.lastError})
		return err
	}
	c.phase = Authenticated
	c.principal = &principal
	c.invalidated = false
	c.lastError = ""
	obs.LoginsTotal.WithLabelValues("ok").Inc()
	c.logf("session.login", map[string]any{"user": principal.ID, "role": principal.Role})
	return nil
}

func (c *Controller) failLogin(gen uint64, err error) {
	result := "error"
	if gateway.IsStatus(err, 401) || gateway.IsStatus(err, 403) {
		result = "denied"
	}
	obs.LoginsTotal.WithLabelValues(result).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.sessionGen {
		return
	}
	c.phase = Unauthenticated
	c.loading = false
	c.lastError = describe(err)
	c.logf("session.login_failed", map[string]any{"stage": "login", "error": c.lastError})
}

// Resume re-derives the principal from a credential pair that survived a
// restart. Stored tokens are never trusted on their own; /auth/me decides.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	pair := c.creds.Read()
	if pair == nil || pair.AccessToken == "" {
		c.mu.Unlock()
		return ErrNoSession
	}
	c.sessionGen++
	gen := c.sessionGen
	c.phase = Authenticating
	c.loading = true
	c.lastError = ""
	c.mu.Unlock()

	principal, err := c.gw.CurrentUser(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.sessionGen {
		if err != nil {
			return err
		}
		return ErrSuperseded
	}
	c.loading = false
	if err != nil {
		c.creds.Clear()
		c.phase = Unauthenticated
		c.principal = nil
		c.lastError = describe(err)
		return err
	}
	c.phase = Authenticated
	c.principal = &principal
	c.invalidated = false
	c.logf("session.resumed", map[string]any{"user": principal.ID})
	return nil
}

// Logout clears credentials and principal locally. Always succeeds; no
// network call. Logout is terminal for any command still in flight.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionGen++
	c.creds.Clear()
	c.phase = Unauthenticated
	c.principal = nil
	c.loading = false
	c.lastError = ""
	c.invalidated = false
	c.logf("session.logout", nil)
}

// Invalidate is the 401 path: same effect as Logout plus the expired-session
// error for the UI. Safe to call from the transport hook at any moment.
// A burst of 401s clears exactly once.
func (c *Controller) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidated {
		return
	}
	if c.phase == Unauthenticated && c.principal == nil && c.creds.Read() == nil {
		return
	}
	c.invalidated = true
	c.sessionGen++
	c.creds.Clear()
	c.phase = Unauthenticated
	c.principal = nil
	c.loading = false
	c.lastError = sessionExpired
	obs.InvalidationsTotal.Inc()
	c.logf("session.invalidated", nil)
}

// Refresh rotates the credential pair through the refresh endpoint. The
// transport never calls this on a 401; it is an explicit command. An
// invalidation or logout landing while the refresh is in flight wins and the
// late pair is discarded.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	pair := c.creds.Read()
	if pair == nil || pair.RefreshToken == "" {
		c.mu.Unlock()
		return ErrNoSession
	}
	gen := c.sessionGen
	c.mu.Unlock()

	fresh, err := c.gw.Refresh(ctx, pair.RefreshToken)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.sessionGen {
		if err != nil {
			return err
		}
		return ErrSuperseded
	}
	if err != nil {
		c.lastError = describe(err)
		return err
	}
	next := credstore.Pair{AccessToken: fresh.Token, RefreshToken: pair.RefreshToken}
	if fresh.RefreshToken != "" {
		next.RefreshToken = fresh.RefreshToken
	}
	c.creds.Write(next)
	c.logf("session.refreshed", nil)
	return nil
}

func describe(err error) string {
	var re *gateway.RemoteError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}
