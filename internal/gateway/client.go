// Package gateway performs the remote identity API calls. Pure
// request/response: no retries, no caching, no session state. Retry and
// backoff policy belongs to callers.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dukan.org/internal/obs"
)

const basePath = "/v1"

// Client wraps the remote identity API.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the API at baseURL. Pass an http.Client whose
// Transport is the interceptor so bearer handling applies; nil falls back to
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: httpClient,
	}
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (TokenPair, error) {
	var out TokenPair
	err := c.do(ctx, "login", http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &out)
	return out, err
}

// Refresh exchanges a refresh token for a fresh pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	var out TokenPair
	err := c.do(ctx, "refresh", http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: refreshToken}, &out)
	return out, err
}

// CurrentUser resolves the bearer token to its principal.
func (c *Client) CurrentUser(ctx context.Context) (Principal, error) {
	var out Principal
	err := c.do(ctx, "current_user", http.MethodGet, "/auth/me", nil, &out)
	return out, err
}

// Setup2FA starts two-factor enrollment for the authenticated principal.
func (c *Client) Setup2FA(ctx context.Context) (TwoFactorSetup, error) {
	var out TwoFactorSetup
	err := c.do(ctx, "2fa_setup", http.MethodPost, "/auth/2fa/setup", nil, &out)
	return out, err
}

// Verify2FA confirms a code against the pending enrollment secret.
func (c *Client) Verify2FA(ctx context.Context, code string) error {
	return c.do(ctx, "2fa_verify", http.MethodPost, "/auth/2fa/verify", codeRequest{Code: code}, nil)
}

// Enable2FA turns two-factor on for a verified enrollment.
func (c *Client) Enable2FA(ctx context.Context) error {
	return c.do(ctx, "2fa_enable", http.MethodPost, "/auth/2fa/enable", nil, nil)
}

// Disable2FA turns two-factor off and discards the enrollment.
func (c *Client) Disable2FA(ctx context.Context) error {
	return c.do(ctx, "2fa_disable", http.MethodPost, "/auth/2fa/disable", nil, nil)
}

// SendVerificationEmail asks the server to mail a verification code.
func (c *Client) SendVerificationEmail(ctx context.Context, email string) error {
	return c.do(ctx, "email_send", http.MethodPost, "/auth/email/send-verification", emailRequest{Email: email}, nil)
}

// VerifyEmail confirms an emailed verification code.
func (c *Client) VerifyEmail(ctx context.Context, code string) error {
	return c.do(ctx, "email_verify", http.MethodPost, "/auth/email/verify", codeRequest{Code: code}, nil)
}

// RequestPasswordReset asks the server to mail a reset code.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, "reset_request", http.MethodPost, "/auth/password/request-reset", emailRequest{Email: email}, nil)
}

// VerifyResetCode checks a reset code. Codes may be single-use server-side;
// callers must not assume this call is idempotent.
func (c *Client) VerifyResetCode(ctx context.Context, code string) error {
	return c.do(ctx, "reset_verify", http.MethodPost, "/auth/password/verify-reset", codeRequest{Code: code}, nil)
}

// ResetPassword completes the reset with a verified code and a new password.
func (c *Client) ResetPassword(ctx context.Context, code, newPassword string) error {
	return c.do(ctx, "reset_confirm", http.MethodPost, "/auth/password/reset", resetRequest{Code: code, NewPassword: newPassword}, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+basePath+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	obs.GatewayRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		obs.GatewayRequestsTotal.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	obs.GatewayRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func errorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return "request failed"
	}
	return msg
}
