package models

import "time"

type User struct {
	ID           int        `json:"id"`
	Username     string     `json:"username"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	Role         string     `json:"role"` // operator, supervisor or admin
	Company      string     `json:"company"`
	IsActive     bool       `json:"is_active"`
	TOTPSecret   string     `json:"-"`
	TOTPEnabled  bool       `json:"totp_enabled"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

const (
	RoleOperator   = "operator"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// Caller is the resolved identity of the authenticated user making a request.
// The auth middleware populates it from database values, not token claims.
type Caller struct {
	ID      int
	Name    string
	Company string
	Role    string
}

func (c Caller) IsOperator() bool { return c.Role == RoleOperator }

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse represents the response after successful authentication.
// When the account has 2FA enabled, Token is empty and TempToken carries a
// short-lived token for the TOTP verification step.
type AuthResponse struct {
	Token       string `json:"token,omitempty"`
	TempToken   string `json:"temp_token,omitempty"`
	Requires2FA bool   `json:"requires_2fa,omitempty"`
	User        *User  `json:"user,omitempty"`
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Company  string `json:"company"`
}

// TOTPSetupResponse carries the secret and QR code for the enrollment screen
type TOTPSetupResponse struct {
	Secret string `json:"secret"`
	QRCode string `json:"qr_code"` // base64-encoded PNG
}

// TOTPVerifyRequest represents a 2FA code submission
type TOTPVerifyRequest struct {
	TempToken string `json:"temp_token,omitempty"`
	Code      string `json:"code"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Company  string `json:"company"`
	Password string `json:"password,omitempty"` // Optional
	IsActive *bool  `json:"is_active,omitempty"`
}
