package auth

import "github.com/simp-lee/mailsync/internal/domain"

// LoginRequest represents the input for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// RegisterRequest represents the input for account registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// RefreshRequest carries the long-lived refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse is returned by login, register and refresh. Refresh leaves
// RefreshToken empty: only the access token rotates.
type TokenResponse struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	ExpiresAt    int64           `json:"expires_at"`
	Account      *domain.Account `json:"account,omitempty"`
}
