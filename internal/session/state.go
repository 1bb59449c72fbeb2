package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dukan.org/internal/gateway"
)

// Phase of the primary session machine.
type Phase int

const (
	Unauthenticated Phase = iota
	Authenticating
	Authenticated
)

func (p Phase) String() string {
	switch p {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Snapshot is the controller state as seen by the UI layer. Loading and
// Error are transient presentation flags, not part of the machine itself.
type Snapshot struct {
	Phase     Phase
	Principal *gateway.Principal
	Loading   bool
	Error     string

	// TokenExpiresAt is the access token's exp claim, read without
	// verifying the signature. Informational only; zero when unknown.
	TokenExpiresAt time.Time
}

// TwoFactorPhase is the enrollment machine. The ordering is load-bearing:
// later phases imply the earlier ones, which is what makes the
// verified/enabled booleans derivable and an enabled-but-unverified state
// unrepresentable.
type TwoFactorPhase int

const (
	TwoFactorIdle TwoFactorPhase = iota
	TwoFactorAwaitingCode
	TwoFactorVerified
	TwoFactorEnabled
)

// TwoFactorSnapshot is the enrollment state as seen by the UI layer.
type TwoFactorSnapshot struct {
	Phase   TwoFactorPhase
	Setup   *gateway.TwoFactorSetup
	Loading bool
	Error   string
}

// Verified reports whether a code was confirmed against the pending secret.
func (s TwoFactorSnapshot) Verified() bool { return s.Phase >= TwoFactorVerified }

// Enabled reports whether two-factor is switched on.
func (s TwoFactorSnapshot) Enabled() bool { return s.Phase == TwoFactorEnabled }

// EmailPhase is the email verification machine. Verified is terminal: a
// later send never regresses it.
type EmailPhase int

const (
	EmailIdle EmailPhase = iota
	EmailSent
	EmailVerified
)

// EmailSnapshot is the email verification state as seen by the UI layer.
type EmailSnapshot struct {
	Phase   EmailPhase
	Loading bool
	Error   string
}

// Sent reports whether a verification mail was requested.
func (s EmailSnapshot) Sent() bool { return s.Phase >= EmailSent }

// Verified reports whether the address was confirmed.
func (s EmailSnapshot) Verified() bool { return s.Phase == EmailVerified }

// ResetPhase is the password reset machine: strictly forward
// requested → code verified → done. A new request restarts the flow.
type ResetPhase int

const (
	ResetIdle ResetPhase = iota
	ResetRequested
	ResetCodeVerified
	ResetDone
)

// ResetSnapshot is the password reset state as seen by the UI layer.
type ResetSnapshot struct {
	Phase   ResetPhase
	Loading bool
	Error   string
}

// Requested reports whether a reset code was requested.
func (s ResetSnapshot) Requested() bool { return s.Phase >= ResetRequested }

// CodeVerified reports whether the reset code was accepted.
func (s ResetSnapshot) CodeVerified() bool { return s.Phase >= ResetCodeVerified }

// Done reports whether the password was changed.
func (s ResetSnapshot) Done() bool { return s.Phase == ResetDone }

// tokenExpiry reads the exp claim without verifying the signature. The value
// is for display; authorization always comes from the server.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
