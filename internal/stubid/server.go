// Package stubid is an in-memory stand-in for the Dukan identity API. It
// implements the full /v1/auth surface so the CLI and integration tests can
// run without the real backend. Not a production server: state lives in one
// process and verification codes are readable through test hooks and the
// server log.
package stubid

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"dukan.org/internal/obs"
)

const defaultAccessTTL = 15 * time.Minute

type account struct {
	ID           string
	Name         string
	Email        string
	Role         string
	PasswordHash []byte

	EmailVerified bool
	EmailCode     string

	TwoFAEnabled  bool
	TwoFAVerified bool
	PendingSecret string
	PendingCode   string

	ResetCode         string
	ResetCodeVerified bool
}

// Server holds all identity state in memory behind one lock.
type Server struct {
	mu       sync.Mutex
	accounts map[string]*account // keyed by email
	refresh  map[string]string   // refresh token -> email
	secret   []byte
	ttl      time.Duration
	codeSeq  int
	router   *mux.Router
}

// Option configures the server.
type Option func(*Server)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSigningSecret pins the HS256 secret (default: random per process).
func WithSigningSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.secret = []byte(secret)
		}
	}
}

// New builds an empty server. Seed principals with AddUser.
func New(opts ...Option) *Server {
	s := &Server{
		accounts: make(map[string]*account),
		refresh:  make(map[string]string),
		secret:   []byte(uuid.NewString()),
		ttl:      defaultAccessTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// AddUser registers an account. The password is stored bcrypt-hashed like
// the real backend would.
func (s *Server) AddUser(name, email, role, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = &account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	}
	return nil
}

func (s *Server) routes() {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1/auth").Subrouter()

	v1.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	v1.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	v1.Handle("/me", s.withAuth(s.handleMe)).Methods(http.MethodGet)

	v1.Handle("/2fa/setup", s.withAuth(s.handleTwoFASetup)).Methods(http.MethodPost)
	v1.Handle("/2fa/verify", s.withAuth(s.handleTwoFAVerify)).Methods(http.MethodPost)
	v1.Handle("/2fa/enable", s.withAuth(s.handleTwoFAEnable)).Methods(http.MethodPost)
	v1.Handle("/2fa/disable", s.withAuth(s.handleTwoFADisable)).Methods(http.MethodPost)

	v1.HandleFunc("/email/send-verification", s.handleEmailSend).Methods(http.MethodPost)
	v1.HandleFunc("/email/verify", s.handleEmailVerify).Methods(http.MethodPost)

	v1.HandleFunc("/password/request-reset", s.handleResetRequest).Methods(http.MethodPost)
	v1.HandleFunc("/password/verify-reset", s.handleResetVerify).Methods(http.MethodPost)
	v1.HandleFunc("/password/reset", s.handleResetConfirm).Methods(http.MethodPost)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": "dukan-identity-stub"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	s.router = r
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// nextCode issues a deterministic 6-digit code. Sequential on purpose:
// integration tests and local runs read it back through the hooks below.
// Caller holds s.mu.
func (s *Server) nextCode() string {
	s.codeSeq++
	return fmt.Sprintf("%06d", s.codeSeq)
}

func newSecret() string {
	raw := make([]byte, 20)
	_, _ = rand.Read(raw)
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)
}

func (s *Server) mintAccessToken(acct *account) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":  acct.ID,
		"role": acct.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
		"jti":  uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Test hooks ---------------------------------------------------------------

// PendingTwoFactorCode returns the code the pending enrollment expects.
func (s *Server) PendingTwoFactorCode(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[email]; ok {
		return acct.PendingCode
	}
	return ""
}

// LastEmailCode returns the most recent verification code mailed to email.
func (s *Server) LastEmailCode(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[email]; ok {
		return acct.EmailCode
	}
	return ""
}

// LastResetCode returns the most recent password reset code for email.
func (s *Server) LastResetCode(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[email]; ok {
		return acct.ResetCode
	}
	return ""
}
