package session

import (
	"context"

	"dukan.org/internal/gateway"
)

// fakeGateway lets each test script exactly the remote behavior it needs.
// Nil funcs succeed with zero values.
type fakeGateway struct {
	loginFn       func(ctx context.Context, email, password string) (gateway.TokenPair, error)
	refreshFn     func(ctx context.Context, refreshToken string) (gateway.TokenPair, error)
	currentUserFn func(ctx context.Context) (gateway.Principal, error)
	setup2FAFn    func(ctx context.Context) (gateway.TwoFactorSetup, error)
	verify2FAFn   func(ctx context.Context, code string) error
	enable2FAFn   func(ctx context.Context) error
	disable2FAFn  func(ctx context.Context) error
	sendEmailFn   func(ctx context.Context, email string) error
	verifyEmailFn func(ctx context.Context, code string) error
	resetReqFn    func(ctx context.Context, email string) error
	resetVerifyFn func(ctx context.Context, code string) error
	resetFn       func(ctx context.Context, code, newPassword string) error
}

func (f *fakeGateway) Login(ctx context.Context, email, password string) (gateway.TokenPair, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, email, password)
	}
	return gateway.TokenPair{Token: "tok1", RefreshToken: "ref1"}, nil
}

func (f *fakeGateway) Refresh(ctx context.Context, refreshToken string) (gateway.TokenPair, error) {
	if f.refreshFn != nil {
		return f.refreshFn(ctx, refreshToken)
	}
	return gateway.TokenPair{Token: "tok2"}, nil
}

func (f *fakeGateway) CurrentUser(ctx context.Context) (gateway.Principal, error) {
	if f.currentUserFn != nil {
		return f.currentUserFn(ctx)
	}
	return gateway.Principal{ID: "u1", Name: "Aidos", Email: "a@b.com", Role: "owner"}, nil
}

func (f *fakeGateway) Setup2FA(ctx context.Context) (gateway.TwoFactorSetup, error) {
	if f.setup2FAFn != nil {
		return f.setup2FAFn(ctx)
	}
	return gateway.TwoFactorSetup{QRCode: "otpauth://totp/x", Secret: "SECRET"}, nil
}

func (f *fakeGateway) Verify2FA(ctx context.Context, code string) error {
	if f.verify2FAFn != nil {
		return f.verify2FAFn(ctx, code)
	}
	return nil
}

func (f *fakeGateway) Enable2FA(ctx context.Context) error {
	if f.enable2FAFn != nil {
		return f.enable2FAFn(ctx)
	}
	return nil
}

func (f *fakeGateway) Disable2FA(ctx context.Context) error {
	if f.disable2FAFn != nil {
		return f.disable2FAFn(ctx)
	}
	return nil
}

func (f *fakeGateway) SendVerificationEmail(ctx context.Context, email string) error {
	if f.sendEmailFn != nil {
		return f.sendEmailFn(ctx, email)
	}
	return nil
}

func (f *fakeGateway) VerifyEmail(ctx context.Context, code string) error {
	if f.verifyEmailFn != nil {
		return f.verifyEmailFn(ctx, code)
	}
	return nil
}

func (f *fakeGateway) RequestPasswordReset(ctx context.Context, email string) error {
	if f.resetReqFn != nil {
		return f.resetReqFn(ctx, email)
	}
	return nil
}

func (f *fakeGateway) VerifyResetCode(ctx context.Context, code string) error {
	if f.resetVerifyFn != nil {
		return f.resetVerifyFn(ctx, code)
	}
	return nil
}

func (f *fakeGateway) ResetPassword(ctx context.Context, code, newPassword string) error {
	if f.resetFn != nil {
		return f.resetFn(ctx, code, newPassword)
	}
	return nil
}

// quietLogger drops events; tests that assert on events install their own.
func quietLogger(string, map[string]any) {}
