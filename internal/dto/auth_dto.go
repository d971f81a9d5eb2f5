package dto

import (
	"time"

	"github.com/google/uuid"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
}

// ProviderLoginRequest is the body the client posts after the provider
// redirected back with an authorization code.
type ProviderLoginRequest struct {
	Code        string `json:"code"`
	ClientID    string `json:"clientId"`
	RedirectURI string `json:"redirectUri"`
}

type UnlinkRequest struct {
	Provider string `json:"provider"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type UserResponse struct {
	ID           uuid.UUID         `json:"id"`
	Email        string            `json:"email,omitempty"`
	FirstName    string            `json:"firstName"`
	LastName     string            `json:"lastName"`
	DisplayName  string            `json:"displayName"`
	ProfilePhoto string            `json:"profilePhoto,omitempty"`
	Providers    map[string]string `json:"providers"`
	HasPassword  bool              `json:"hasPassword"`
	Verified     string            `json:"verified"`
	Timezone     string            `json:"timezone"`
	CreatedAt    time.Time         `json:"createdAt"`
}

type ErrorResponse struct {
	Error   bool                `json:"error"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Driver    string `json:"driver"`
	Store     string `json:"store"`
}
