package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
	"github.com/agroconnect/agroconnect-backend/pkg/pagination"
)

// OrderLineInput is one product line of a new order.
type OrderLineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderInput creates an order for one farmer's goods.
type CreateOrderInput struct {
	FarmerID uuid.UUID        `json:"farmer_id" validate:"required"`
	Lines    []OrderLineInput `json:"lines" validate:"required,min=1,dive"`
}

// ListOrdersInput filters the order listing.
type ListOrdersInput struct {
	UserID     uuid.UUID
	Role       enums.UserRole
	Pagination pagination.Params
}

// PaymentIntentDTO hands the client what it needs to confirm a payment.
type PaymentIntentDTO struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
}

// OrderItemDTO is one priced line of an order.
type OrderItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// OrderDTO is the API projection of an order.
type OrderDTO struct {
	ID         uuid.UUID         `json:"id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	FarmerID   uuid.UUID         `json:"farmer_id"`
	Status     enums.OrderStatus `json:"status"`
	Total      decimal.Decimal   `json:"total"`
	Items      []OrderItemDTO    `json:"items"`
	CreatedAt  time.Time         `json:"created_at"`
}

func orderFromModel(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return &OrderDTO{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		FarmerID:   order.FarmerID,
		Status:     order.Status,
		Total:      order.Total,
		Items:      items,
		CreatedAt:  order.CreatedAt,
	}
}
