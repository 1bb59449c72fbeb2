package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoginDecodesTokenPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/auth/login" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["email"] != "a@b.com" || req["password"] != "secret123" {
			t.Fatalf("unexpected payload: %v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tok1","refresh_token":"ref1"}`))
	}))
	defer srv.Close()

	pair, err := New(srv.URL, nil).Login(context.Background(), "a@b.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.Token != "tok1" || pair.RefreshToken != "ref1" {
		t.Fatalf("unexpected pair: %+v", pair)
	}
}

func TestCurrentUserDecodesPrincipal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/auth/me" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"u1","name":"Aidos","email":"a@b.com","role":"owner"}`))
	}))
	defer srv.Close()

	p, err := New(srv.URL, nil).CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if p.ID != "u1" || p.Role != "owner" {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestRemoteErrorCarriesStatusAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Login(context.Background(), "a@b.com", "wrong-pass")
	if err == nil {
		t.Fatalf("expected error")
	}
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %T: %v", err, err)
	}
	if re.Status != http.StatusUnauthorized || re.Message != "invalid credentials" {
		t.Fatalf("unexpected remote error: %+v", re)
	}
	if !IsUnauthorized(err) {
		t.Fatalf("IsUnauthorized should match")
	}
	if IsRejection(err) {
		t.Fatalf("a 401 is an identity failure, not a domain rejection")
	}
}

func TestRejectionClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid code"}`))
	}))
	defer srv.Close()

	err := New(srv.URL, nil).Verify2FA(context.Background(), "000000")
	if !IsRejection(err) {
		t.Fatalf("expected domain rejection, got %v", err)
	}
	if IsUnauthorized(err) {
		t.Fatalf("a 422 is not an identity failure")
	}
}

func TestPlainTextErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := New(srv.URL, nil).Enable2FA(context.Background())
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if re.Message != "rate limit exceeded" {
		t.Fatalf("unexpected message: %q", re.Message)
	}
}

func TestAckOperationsHitExpectedPaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	ctx := context.Background()
	calls := []func() error{
		func() error { return c.Verify2FA(ctx, "123456") },
		func() error { return c.Enable2FA(ctx) },
		func() error { return c.Disable2FA(ctx) },
		func() error { return c.SendVerificationEmail(ctx, "a@b.com") },
		func() error { return c.VerifyEmail(ctx, "123456") },
		func() error { return c.RequestPasswordReset(ctx, "a@b.com") },
		func() error { return c.VerifyResetCode(ctx, "123456") },
		func() error { return c.ResetPassword(ctx, "123456", "newsecret9") },
	}
	for i, call := range calls {
		if err := call(); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	want := []string{
		"POST /v1/auth/2fa/verify",
		"POST /v1/auth/2fa/enable",
		"POST /v1/auth/2fa/disable",
		"POST /v1/auth/email/send-verification",
		"POST /v1/auth/email/verify",
		"POST /v1/auth/password/request-reset",
		"POST /v1/auth/password/verify-reset",
		"POST /v1/auth/password/reset",
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d requests, got %d: %v", len(want), len(paths), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("request %d: expected %q, got %q", i, want[i], paths[i])
		}
	}
}
