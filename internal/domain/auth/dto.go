// internal/domain/auth/dto.go
package auth

import "time"

// LoginRequest for client login
type LoginRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse successful login response
type LoginResponse struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ExpiresIn int64     `json:"expires_in"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenInfo describes a verified bearer token.
type TokenInfo struct {
	Subject   string                 `json:"subject"`
	Issuer    string                 `json:"issuer"`
	IssuedAt  time.Time              `json:"issued_at"`
	ExpiresAt time.Time              `json:"expires_at"`
	Claims    map[string]interface{} `json:"claims,omitempty"`
}
