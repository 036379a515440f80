package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agroconnect/agroconnect-backend/pkg/enums"
)

// ChatRoom tracks one customer/farmer conversation about a product.
// A room is created on first contact, either from checkout or from a
// product inquiry, and reused from then on.
type ChatRoom struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID        uuid.UUID             `gorm:"column:customer_id;type:uuid;not null;index" json:"customer_id"`
	FarmerID          uuid.UUID             `gorm:"column:farmer_id;type:uuid;not null;index" json:"farmer_id"`
	ProductID         *uuid.UUID            `gorm:"column:product_id;type:uuid" json:"product_id,omitempty"`
	Quantity          int                   `gorm:"column:quantity;not null;default:1" json:"quantity"`
	HasUnreadCustomer bool                  `gorm:"column:has_unread_customer;not null;default:false" json:"has_unread_customer"`
	HasUnreadFarmer   bool                  `gorm:"column:has_unread_farmer;not null;default:false" json:"has_unread_farmer"`
	OrderID           *uuid.UUID            `gorm:"column:order_id;type:uuid" json:"order_id,omitempty"`
	OrderStatus       enums.RoomOrderStatus `gorm:"column:order_status;not null;default:'new'" json:"order_status"`
	IsNewOrder        bool                  `gorm:"column:is_new_order;not null;default:true" json:"is_new_order"`
	LastMessageText   *string               `gorm:"column:last_message_text" json:"last_message_text,omitempty"`
	LastMessageAt     *time.Time            `gorm:"column:last_message_at" json:"last_message_at,omitempty"`
	Customer          *User                 `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Farmer            *User                 `gorm:"foreignKey:FarmerID" json:"farmer,omitempty"`
	Product           *Product              `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// IsParticipant reports whether the user belongs to this room.
func (r ChatRoom) IsParticipant(userID uuid.UUID) bool {
	return r.CustomerID == userID || r.FarmerID == userID
}

// PeerOf returns the other participant's id.
func (r ChatRoom) PeerOf(userID uuid.UUID) uuid.UUID {
	if r.CustomerID == userID {
		return r.FarmerID
	}
	return r.CustomerID
}
