package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agroconnect/agroconnect-backend/pkg/enums"
)

// User is a registered marketplace account, either a customer or a farmer.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	FullName     string         `gorm:"column:full_name;not null" json:"full_name"`
	Role         enums.UserRole `gorm:"column:role;not null" json:"role"`
	City         *string        `gorm:"column:city" json:"city,omitempty"`
	Phone        *string        `gorm:"column:phone" json:"phone,omitempty"`
	AvatarURL    *string        `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
