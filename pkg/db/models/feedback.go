package models

import (
	"time"

	"github.com/google/uuid"
)

// Feedback is a customer's rating for a product, one row per
// (product, customer) pair enforced by a unique index.
type Feedback struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_feedback_product_customer" json:"product_id"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:idx_feedback_product_customer" json:"customer_id"`
	Rating     int       `gorm:"column:rating;not null" json:"rating"`
	Comment    string    `gorm:"column:comment;not null;default:''" json:"comment"`
	Customer   *User     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
