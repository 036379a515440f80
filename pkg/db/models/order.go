package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agroconnect/agroconnect-backend/pkg/enums"
)

// Order groups one customer's purchase from a single farmer.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID      uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index" json:"customer_id"`
	FarmerID        uuid.UUID         `gorm:"column:farmer_id;type:uuid;not null;index" json:"farmer_id"`
	Status          enums.OrderStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(10,2);not null" json:"total"`
	PaymentIntentID *string           `gorm:"column:payment_intent_id" json:"payment_intent_id,omitempty"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Customer        *User             `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Farmer          *User             `gorm:"foreignKey:FarmerID" json:"farmer,omitempty"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// OrderItem is one product line inside an order, priced at purchase time.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Name      string          `gorm:"column:name;not null" json:"name"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
