package stubid

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"dukan.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(req.Email))]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.mintAccessToken(acct)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "token generation failed")
		return
	}
	refresh := uuid.NewString()
	s.mu.Lock()
	s.refresh[refresh] = acct.Email
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"token":         token,
		"refresh_token": refresh,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	email, ok := s.refresh[req.RefreshToken]
	if ok {
		delete(s.refresh, req.RefreshToken) // rotation: the old token is spent
	}
	acct := s.accounts[email]
	s.mu.Unlock()
	if !ok || acct == nil {
		respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	token, err := s.mintAccessToken(acct)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "token generation failed")
		return
	}
	rotated := uuid.NewString()
	s.mu.Lock()
	s.refresh[rotated] = acct.Email
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"token":         token,
		"refresh_token": rotated,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, acct *account) {
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    acct.ID,
		"name":  acct.Name,
		"email": acct.Email,
		"role":  acct.Role,
	})
}

func (s *Server) handleTwoFASetup(w http.ResponseWriter, r *http.Request, acct *account) {
	s.mu.Lock()
	acct.PendingSecret = newSecret()
	acct.PendingCode = s.nextCode()
	acct.TwoFAVerified = false
	secret := acct.PendingSecret
	code := acct.PendingCode
	s.mu.Unlock()

	obs.Event("stubid.2fa_code", map[string]any{"email": acct.Email, "code": code})
	writeJSON(w, http.StatusOK, map[string]any{
		"qr_code": fmt.Sprintf("otpauth://totp/dukan:%s?secret=%s&issuer=dukan", acct.Email, secret),
		"secret":  secret,
	})
}

func (s *Server) handleTwoFAVerify(w http.ResponseWriter, r *http.Request, acct *account) {
	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct.PendingSecret == "" {
		respondError(w, http.StatusConflict, "no pending enrollment")
		return
	}
	if req.Code != acct.PendingCode {
		respondError(w, http.StatusUnprocessableEntity, "invalid code")
		return
	}
	acct.TwoFAVerified = true
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleTwoFAEnable(w http.ResponseWriter, r *http.Request, acct *account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !acct.TwoFAVerified {
		respondError(w, http.StatusConflict, "two-factor code not verified")
		return
	}
	acct.TwoFAEnabled = true
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleTwoFADisable(w http.ResponseWriter, r *http.Request, acct *account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct.TwoFAEnabled = false
	acct.TwoFAVerified = false
	acct.PendingSecret = ""
	acct.PendingCode = ""
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleEmailSend(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(req.Email))]
	if ok {
		acct.EmailCode = s.nextCode()
		obs.Event("stubid.email_code", map[string]any{"email": acct.Email, "code": acct.EmailCode})
	}
	s.mu.Unlock()
	if !ok {
		respondError(w, http.StatusNotFound, "unknown account")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleEmailVerify(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if acct.EmailCode != "" && acct.EmailCode == req.Code {
			acct.EmailVerified = true
			acct.EmailCode = ""
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	respondError(w, http.StatusUnprocessableEntity, "invalid code")
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	if acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(req.Email))]; ok {
		acct.ResetCode = s.nextCode()
		acct.ResetCodeVerified = false
		obs.Event("stubid.reset_code", map[string]any{"email": acct.Email, "code": acct.ResetCode})
	}
	s.mu.Unlock()
	// Always succeed: the response must not reveal which emails exist.
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleResetVerify(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if acct.ResetCode != "" && acct.ResetCode == req.Code {
			acct.ResetCodeVerified = true
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	respondError(w, http.StatusUnprocessableEntity, "invalid or expired reset code")
}

func (s *Server) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(w, http.StatusBadRequest, "password too short")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if acct.ResetCode != "" && acct.ResetCode == req.Code && acct.ResetCodeVerified {
			hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.MinCost)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "hash failed")
				return
			}
			acct.PasswordHash = hash
			acct.ResetCode = "" // single use
			acct.ResetCodeVerified = false
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	respondError(w, http.StatusUnprocessableEntity, "invalid or expired reset code")
}

// withAuth resolves the bearer token to an account before invoking next.
func (s *Server) withAuth(next func(http.ResponseWriter, *http.Request, *account)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return s.secret, nil
		})
		if err != nil || !parsed.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		sub, err := parsed.Claims.GetSubject()
		if err != nil || sub == "" {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		s.mu.Lock()
		var acct *account
		for _, a := range s.accounts {
			if a.ID == sub {
				acct = a
				break
			}
		}
		s.mu.Unlock()
		if acct == nil {
			respondError(w, http.StatusUnauthorized, "unknown principal")
			return
		}
		next(w, r, acct)
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	const prefix = "bearer "
	if !strings.HasPrefix(strings.ToLower(header), prefix) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// helpers ------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
