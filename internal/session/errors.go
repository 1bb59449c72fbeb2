package session

import "errors"

var (
	ErrInvalidInput = errors.New("session: invalid input")
	ErrNoSession    = errors.New("session: no stored credentials")
	ErrSuperseded   = errors.New("session: superseded by a newer command")
	ErrRateLimited  = errors.New("session: too many login attempts")
	ErrNoSetup      = errors.New("session: no pending two-factor setup")
	ErrNotVerified  = errors.New("session: two-factor code not verified")
	ErrNotRequested = errors.New("session: no password reset requested")
)
