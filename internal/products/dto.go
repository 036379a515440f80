package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
	"github.com/agroconnect/agroconnect-backend/pkg/pagination"
)

// CreateProductInput holds the validated payload to create a listing.
type CreateProductInput struct {
	Name          string
	Category      enums.ProductCategory
	Description   string
	Price         decimal.Decimal
	DiscountPct   int
	StockQuantity decimal.Decimal
	ImageURL      string
	ImageURL2     *string
	ImageURL3     *string
}

// UpdateProductInput holds optional mutation values for a listing.
type UpdateProductInput struct {
	Name          *string
	Category      *enums.ProductCategory
	Description   *string
	Price         *decimal.Decimal
	DiscountPct   *int
	StockQuantity *decimal.Decimal
	ImageURL      *string
	ImageURL2     *string
	ImageURL3     *string
}

// ListProductsInput captures catalogue filters plus pagination.
type ListProductsInput struct {
	Category   *enums.ProductCategory
	FarmerID   *uuid.UUID
	Search     string
	Pagination pagination.Params
}

// FarmerSummary is the seller snippet attached to product reads.
type FarmerSummary struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	City     *string   `json:"city,omitempty"`
}

// ProductDTO is the API projection of a listing.
type ProductDTO struct {
	ID              uuid.UUID             `json:"id"`
	Name            string                `json:"name"`
	Category        enums.ProductCategory `json:"category"`
	Description     string                `json:"description"`
	Price           decimal.Decimal       `json:"price"`
	DiscountPct     int                   `json:"discount_pct"`
	DiscountedPrice decimal.Decimal       `json:"discounted_price"`
	StockQuantity   decimal.Decimal       `json:"stock_quantity"`
	ImageURL        string                `json:"image_url"`
	ImageURL2       *string               `json:"image_url2,omitempty"`
	ImageURL3       *string               `json:"image_url3,omitempty"`
	Farmer          *FarmerSummary        `json:"farmer,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

// FromModel converts a persisted product into its API projection.
func FromModel(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:              product.ID,
		Name:            product.Name,
		Category:        product.Category,
		Description:     product.Description,
		Price:           product.Price,
		DiscountPct:     product.DiscountPct,
		DiscountedPrice: product.DiscountedPrice(),
		StockQuantity:   product.StockQuantity,
		ImageURL:        product.ImageURL,
		ImageURL2:       product.ImageURL2,
		ImageURL3:       product.ImageURL3,
		CreatedAt:       product.CreatedAt,
	}
	if product.Farmer != nil {
		dto.Farmer = &FarmerSummary{
			ID:       product.Farmer.ID,
			FullName: product.Farmer.FullName,
			City:     product.Farmer.City,
		}
	}
	return dto
}
