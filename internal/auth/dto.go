package auth

import (
	"github.com/agroconnect/agroconnect-backend/internal/users"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
)

// RegisterRequest captures the signup payload for customers and farmers.
type RegisterRequest struct {
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=8"`
	FullName string         `json:"full_name" validate:"required"`
	Role     enums.UserRole `json:"role" validate:"required"`
	City     *string        `json:"city,omitempty"`
	Phone    *string        `json:"phone,omitempty"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the expiring access token plus its refresh pair.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is returned whenever new credentials are minted.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse contains the tokens and user produced by login or registration.
type AuthResponse struct {
	TokenPair
	User users.PublicUser `json:"user"`
}

// UpdateProfileRequest holds optional profile mutations.
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name,omitempty"`
	City      *string `json:"city,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}
