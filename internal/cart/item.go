package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
)

// Item is one cart line. UnitPrice is the discounted price at the time the
// product was added; OriginalPrice keeps the list price for display. Stock
// remembers the product's stock at add time and caps the line quantity.
type Item struct {
	ProductID     uuid.UUID       `json:"product_id"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	DiscountPct   int             `json:"discount_pct"`
	Quantity      int             `json:"quantity"`
	Stock         decimal.Decimal `json:"stock"`
	FarmerID      uuid.UUID       `json:"farmer_id"`
	ImageURL      string          `json:"image_url"`
}

// Subtotal is the line total at the discounted unit price.
func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemFromProduct snapshots a listing into a cart line of quantity one.
func ItemFromProduct(product *models.Product) Item {
	return Item{
		ProductID:     product.ID,
		Name:          product.Name,
		UnitPrice:     product.DiscountedPrice(),
		OriginalPrice: product.Price,
		DiscountPct:   product.DiscountPct,
		Quantity:      1,
		Stock:         product.StockQuantity,
		FarmerID:      product.FarmerID,
		ImageURL:      product.ImageURL,
	}
}

// Cart is the full cart payload returned to clients.
type Cart struct {
	Items []Item          `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// NewCart computes the total over the provided lines.
func NewCart(items []Item) Cart {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	if items == nil {
		items = []Item{}
	}
	return Cart{Items: items, Total: total}
}
