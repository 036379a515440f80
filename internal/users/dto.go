package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
)

// CreateUserDTO carries the fields needed to insert a user row.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FullName     string
	Role         enums.UserRole
	City         *string
	Phone        *string
}

// ToModel maps the DTO onto a fresh user model.
func (d CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		FullName:     d.FullName,
		Role:         d.Role,
		City:         d.City,
		Phone:        d.Phone,
	}
}

// ProfileUpdate holds the mutable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	FullName  *string
	City      *string
	Phone     *string
	AvatarURL *string
}

// PublicUser is the API projection of a user, without credentials.
type PublicUser struct {
	ID        uuid.UUID      `json:"id"`
	Email     string         `json:"email"`
	FullName  string         `json:"full_name"`
	Role      enums.UserRole `json:"role"`
	City      *string        `json:"city,omitempty"`
	Phone     *string        `json:"phone,omitempty"`
	AvatarURL *string        `json:"avatar_url,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// FromModel converts a persisted user into its public projection.
func FromModel(user *models.User) PublicUser {
	if user == nil {
		return PublicUser{}
	}
	return PublicUser{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		City:      user.City,
		Phone:     user.Phone,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
	}
}
