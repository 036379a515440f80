package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agroconnect/agroconnect-backend/internal/products"
	"github.com/agroconnect/agroconnect-backend/internal/repo"
	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
	"github.com/agroconnect/agroconnect-backend/pkg/pagination"
)

// StockLine pairs a product with the quantity an order consumes.
type StockLine struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// Repository persists orders. Stock movements ride the same transaction
// as the order row so a failed decrement leaves nothing behind.
type Repository struct {
	repo.Base
	products *products.Repository
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB, products *products.Repository) *Repository {
	return &Repository{Base: repo.NewBase(db), products: products}
}

// CreateWithStock inserts the order and decrements every line's stock
// atomically. products.ErrInsufficientStock aborts the whole order.
func (r *Repository) CreateWithStock(ctx context.Context, order *models.Order, lines []StockLine) (*models.Order, error) {
	err := r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		stock := r.products.WithTx(tx)
		for _, line := range lines {
			if err := stock.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads the order with its lines.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns a page of the user's orders, newest first. Customers see
// what they bought, farmers what they sold.
func (r *Repository) List(ctx context.Context, input ListOrdersInput) ([]models.Order, error) {
	query := r.DB(ctx).Model(&models.Order{}).Preload("Items")
	if input.Role == enums.UserRoleFarmer {
		query = query.Where("farmer_id = ?", input.UserID)
	} else {
		query = query.Where("customer_id = ?", input.UserID)
	}

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}
	query = repo.ApplyCursor(query, cursor).Limit(pagination.LimitWithBuffer(input.Pagination.Limit))

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus moves the order's lifecycle column.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.DB(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// SetPaymentIntent remembers the Stripe intent backing the order.
func (r *Repository) SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) error {
	return r.DB(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("payment_intent_id", intentID).Error
}
