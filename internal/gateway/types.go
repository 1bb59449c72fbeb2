package gateway

// Principal is the authenticated identity as reported by /v1/auth/me.
type Principal struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenPair is the credential material returned by login and refresh.
// RefreshToken may be empty when the server chose not to rotate it.
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TwoFactorSetup is the enrollment material returned by /v1/auth/2fa/setup.
type TwoFactorSetup struct {
	QRCode string `json:"qr_code"`
	Secret string `json:"secret"`
}

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

type resetRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}
