package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agroconnect/agroconnect-backend/pkg/enums"
)

// Product is a farmer's listing. Prices and stock keep two decimal places
// because produce is sold by fractional weight as well as by unit.
type Product struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FarmerID      uuid.UUID             `gorm:"column:farmer_id;type:uuid;not null;index" json:"farmer_id"`
	Name          string                `gorm:"column:name;not null" json:"name"`
	Category      enums.ProductCategory `gorm:"column:category;not null" json:"category"`
	Description   string                `gorm:"column:description;not null" json:"description"`
	Price         decimal.Decimal       `gorm:"column:price;type:numeric(10,2);not null" json:"price"`
	DiscountPct   int                   `gorm:"column:discount_pct;not null;default:0" json:"discount_pct"`
	StockQuantity decimal.Decimal       `gorm:"column:stock_quantity;type:numeric(10,2);not null" json:"stock_quantity"`
	ImageURL      string                `gorm:"column:image_url;not null" json:"image_url"`
	ImageURL2     *string               `gorm:"column:image_url2" json:"image_url2,omitempty"`
	ImageURL3     *string               `gorm:"column:image_url3" json:"image_url3,omitempty"`
	Farmer        *User                 `gorm:"foreignKey:FarmerID" json:"farmer,omitempty"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// DiscountedPrice applies the percentage discount to the list price.
func (p Product) DiscountedPrice() decimal.Decimal {
	if p.DiscountPct <= 0 {
		return p.Price
	}
	factor := decimal.NewFromInt(int64(100 - p.DiscountPct)).Div(decimal.NewFromInt(100))
	return p.Price.Mul(factor).Round(2)
}
