package dto

import "time"

// RegisterRequest payload for new subscribers.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest payload for the token-refresh endpoint.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest payload revoking a refresh credential.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse is returned by login, register and refresh. The field names
// match what the dashboard client expects.
type AuthResponse struct {
	Success                bool          `json:"success"`
	Token                  string        `json:"token"`
	TokenExpiration        time.Time     `json:"tokenExpiration"`
	RefreshToken           string        `json:"refreshToken"`
	RefreshTokenExpiration time.Time     `json:"refreshTokenExpiration"`
	User                   *UserResponse `json:"user,omitempty"`
	Roles                  []string      `json:"roles,omitempty"`
}
