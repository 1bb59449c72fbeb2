package stubid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"dukan.org/internal/credstore"
	"dukan.org/internal/gateway"
	"dukan.org/internal/routing"
	"dukan.org/internal/session"
	"dukan.org/internal/stubid"
	"dukan.org/internal/transport"
)

// harness wires the full client stack against an in-process identity server,
// the same way cmd/dukan does.
type harness struct {
	srv   *stubid.Server
	creds *credstore.Memory
	icept *transport.Interceptor
	ctrl  *session.Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := stubid.New(stubid.WithSigningSecret("it-secret"))
	if err := srv.AddUser("Aidos Bekov", "owner@dukan.local", "owner", "owner-pass-1"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	creds := credstore.NewMemory()
	icept := transport.New(creds)
	gw := gateway.New(ts.URL, &http.Client{Transport: icept})
	ctrl := session.New(creds, gw, session.WithLogger(func(string, map[string]any) {}))
	icept.OnUnauthorized(ctrl.Invalidate)
	return &harness{srv: srv, creds: creds, icept: icept, ctrl: ctrl}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	if err := h.ctrl.Login(context.Background(), "owner@dukan.local", "owner-pass-1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestLoginLandsOnOwnerDashboard(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	snap := h.ctrl.Snapshot()
	if snap.Phase != session.Authenticated {
		t.Fatalf("expected authenticated, got %v", snap.Phase)
	}
	if snap.Principal == nil || snap.Principal.Role != "owner" {
		t.Fatalf("unexpected principal: %+v", snap.Principal)
	}
	if snap.TokenExpiresAt.IsZero() {
		t.Fatalf("expected token expiry derived from the access token")
	}
	if got := routing.Route(snap.Principal.Role); got != "/dashboard" {
		t.Fatalf("owner must land on /dashboard, got %q", got)
	}
	if pair := h.creds.Read(); pair == nil || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens stored, got %+v", pair)
	}
}

func TestBadCredentialsStayUnauthenticated(t *testing.T) {
	h := newHarness(t)
	err := h.ctrl.Login(context.Background(), "owner@dukan.local", "wrong-pass-1")
	if !gateway.IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
	snap := h.ctrl.Snapshot()
	if snap.Phase != session.Unauthenticated || snap.Error == "" {
		t.Fatalf("unexpected state after denial: %+v", snap)
	}
	if h.creds.Read() != nil {
		t.Fatalf("denied login must not store tokens")
	}
}

func TestTwoFactorEnrollmentEndToEnd(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	setup, err := h.ctrl.Setup2FA(ctx)
	if err != nil {
		t.Fatalf("Setup2FA: %v", err)
	}
	if setup.Secret == "" || setup.QRCode == "" {
		t.Fatalf("expected enrollment material, got %+v", setup)
	}

	// Wrong code rejected; the machine stays enrollable.
	if err := h.ctrl.Verify2FA(ctx, "000000"); !gateway.IsRejection(err) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if tf := h.ctrl.TwoFactor(); tf.Verified() {
		t.Fatalf("rejected code must not verify")
	}

	code := h.srv.PendingTwoFactorCode("owner@dukan.local")
	if err := h.ctrl.Verify2FA(ctx, code); err != nil {
		t.Fatalf("Verify2FA: %v", err)
	}
	if err := h.ctrl.Enable2FA(ctx); err != nil {
		t.Fatalf("Enable2FA: %v", err)
	}
	if tf := h.ctrl.TwoFactor(); !tf.Enabled() {
		t.Fatalf("expected enabled, got %+v", tf)
	}

	if err := h.ctrl.Disable2FA(ctx); err != nil {
		t.Fatalf("Disable2FA: %v", err)
	}
	if tf := h.ctrl.TwoFactor(); tf.Enabled() || tf.Verified() || tf.Setup != nil {
		t.Fatalf("disable must discard the enrollment, got %+v", tf)
	}
}

func TestEmailVerificationEndToEnd(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	if err := h.ctrl.SendVerificationEmail(ctx, "owner@dukan.local"); err != nil {
		t.Fatalf("SendVerificationEmail: %v", err)
	}
	code := h.srv.LastEmailCode("owner@dukan.local")
	if code == "" {
		t.Fatalf("expected a mailed code")
	}
	if err := h.ctrl.VerifyEmail(ctx, code); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if em := h.ctrl.Email(); !em.Verified() {
		t.Fatalf("expected verified, got %+v", em)
	}

	// Verified is terminal even if another mail goes out.
	if err := h.ctrl.SendVerificationEmail(ctx, "owner@dukan.local"); err != nil {
		t.Fatalf("second send: %v", err)
	}
	if em := h.ctrl.Email(); !em.Verified() {
		t.Fatalf("a later send must not regress verification")
	}
}

func TestPasswordResetEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.ctrl.RequestPasswordReset(ctx, "owner@dukan.local"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}

	// A wrong code keeps the flow at requested.
	if err := h.ctrl.VerifyResetCode(ctx, "000000"); !gateway.IsRejection(err) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if rs := h.ctrl.Reset(); !rs.Requested() || rs.CodeVerified() {
		t.Fatalf("unexpected state after rejected code: %+v", rs)
	}

	code := h.srv.LastResetCode("owner@dukan.local")
	if err := h.ctrl.VerifyResetCode(ctx, code); err != nil {
		t.Fatalf("VerifyResetCode: %v", err)
	}
	if err := h.ctrl.ResetPassword(ctx, code, "fresh-pass-9"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if rs := h.ctrl.Reset(); !rs.Done() {
		t.Fatalf("expected done, got %+v", rs)
	}

	// The new password authenticates.
	if err := h.ctrl.Login(ctx, "owner@dukan.local", "fresh-pass-9"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestRefreshRotatesStoredPair(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	before := h.creds.Read()

	if err := h.ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	after := h.creds.Read()
	if after == nil || after.AccessToken == before.AccessToken {
		t.Fatalf("expected a fresh access token")
	}
	if after.RefreshToken == before.RefreshToken {
		t.Fatalf("expected refresh token rotation")
	}

	// Still authenticated with the rotated pair.
	if err := h.ctrl.Resume(context.Background()); err != nil {
		t.Fatalf("Resume after refresh: %v", err)
	}
}

func TestRejectedTokenInvalidatesSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	// The stored access token goes bad, as if revoked server-side.
	h.creds.Write(credstore.Pair{AccessToken: "revoked-token", RefreshToken: "stale"})

	err := h.ctrl.Resume(context.Background())
	if !gateway.IsUnauthorized(err) {
		t.Fatalf("expected 401 surfaced, got %v", err)
	}

	// The transport hook fired: session torn down, credentials gone.
	snap := h.ctrl.Snapshot()
	if snap.Phase != session.Unauthenticated || snap.Principal != nil {
		t.Fatalf("expected invalidated session, got %+v", snap)
	}
	if snap.Error != "session expired" {
		t.Fatalf("expected the expired-session error, got %q", snap.Error)
	}
	if h.creds.Read() != nil {
		t.Fatalf("expected credentials cleared")
	}
}
