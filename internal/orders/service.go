package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/agroconnect/agroconnect-backend/internal/products"
	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
	"github.com/agroconnect/agroconnect-backend/pkg/pagination"
)

const paymentCurrency = "usd"

// Service is the order lifecycle API.
type Service interface {
	CreateOrder(ctx context.Context, customerID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*pagination.Page[*OrderDTO], error)
	CreatePaymentIntent(ctx context.Context, orderID, customerID uuid.UUID) (*PaymentIntentDTO, error)
	ConfirmPayment(ctx context.Context, orderID, customerID uuid.UUID) (*OrderDTO, error)
	Ship(ctx context.Context, orderID, farmerID uuid.UUID) (*OrderDTO, error)
	ConfirmReceipt(ctx context.Context, orderID, customerID uuid.UUID) (*OrderDTO, error)
}

type orderRepository interface {
	CreateWithStock(ctx context.Context, order *models.Order, lines []StockLine) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, input ListOrdersInput) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
	SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) error
}

type productCatalog interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type paymentProvider interface {
	CreatePaymentIntent(ctx context.Context, total decimal.Decimal, currency, orderID string) (*stripe.PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error)
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo     orderRepository
	Products productCatalog
	Payments paymentProvider
	Logger   *logger.Logger
}

type service struct {
	repo     orderRepository
	products productCatalog
	payments paymentProvider
	logg     *logger.Logger
}

// NewService wires the order service.
func NewService(params ServiceParams) Service {
	return &service{
		repo:     params.Repo,
		products: params.Products,
		payments: params.Payments,
		logg:     params.Logger,
	}
}

// CreateOrder prices one farmer group's lines at the current discounted
// price and reserves stock. Insufficient stock fails the whole order.
func (s *service) CreateOrder(ctx context.Context, customerID uuid.UUID, input CreateOrderInput) (*OrderDTO, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no lines")
	}
	ids := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		ids = append(ids, line.ProductID)
	}

	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order products")
	}
	byID := make(map[uuid.UUID]*models.Product, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	order := &models.Order{
		CustomerID: customerID,
		FarmerID:   input.FarmerID,
		Status:     enums.OrderStatusPending,
		Total:      decimal.Zero,
	}
	lines := make([]StockLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		product, ok := byID[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if product.FarmerID != input.FarmerID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product belongs to another farmer").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		unitPrice := product.DiscountedPrice()
		order.Items = append(order.Items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: unitPrice,
			Quantity:  line.Quantity,
		})
		order.Total = order.Total.Add(unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		lines = append(lines, StockLine{ProductID: product.ID, Quantity: decimal.NewFromInt(int64(line.Quantity))})
	}

	created, err := s.repo.CreateWithStock(ctx, order, lines)
	if err != nil {
		if errors.Is(err, products.ErrInsufficientStock) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "not enough stock")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}
	return orderFromModel(created), nil
}

// GetOrder loads one order, restricted to its two parties.
func (s *service) GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrderFor(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	return orderFromModel(order), nil
}

// ListOrders pages through the caller's orders for their role.
func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (*pagination.Page[*OrderDTO], error) {
	rows, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	dtos := make([]*OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, orderFromModel(&rows[i]))
	}
	page := pagination.NewPage(dtos, input.Pagination.Limit, func(dto *OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: dto.CreatedAt, ID: dto.ID}
	})
	return &page, nil
}

// CreatePaymentIntent opens a Stripe intent for a pending order and
// hands back the client secret.
func (s *service) CreatePaymentIntent(ctx context.Context, orderID, customerID uuid.UUID) (*PaymentIntentDTO, error) {
	order, err := s.loadOrderFor(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can pay an order")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}

	intent, err := s.payments.CreatePaymentIntent(ctx, order.Total, paymentCurrency, order.ID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	if err := s.repo.SetPaymentIntent(ctx, order.ID, intent.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment intent")
	}
	return &PaymentIntentDTO{IntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// ConfirmPayment checks the intent with Stripe and moves the order to
// paid. Stripe is the source of truth; the client's word alone is not.
func (s *service) ConfirmPayment(ctx context.Context, orderID, customerID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrderFor(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can confirm payment")
	}
	if order.PaymentIntentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no payment intent on this order")
	}

	intent, err := s.payments.RetrievePaymentIntent(ctx, *order.PaymentIntentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up payment intent")
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has not succeeded").
			WithDetails(map[string]any{"intent_status": string(intent.Status)})
	}
	return s.transition(ctx, order, enums.OrderStatusPaid)
}

// Ship is the farmer marking a paid order on its way.
func (s *service) Ship(ctx context.Context, orderID, farmerID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrderFor(ctx, orderID, farmerID)
	if err != nil {
		return nil, err
	}
	if order.FarmerID != farmerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the selling farmer can ship")
	}
	return s.transition(ctx, order, enums.OrderStatusShipped)
}

// ConfirmReceipt is the customer closing out a shipped order.
func (s *service) ConfirmReceipt(ctx context.Context, orderID, customerID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrderFor(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can confirm receipt")
	}
	return s.transition(ctx, order, enums.OrderStatusReceived)
}

func (s *service) transition(ctx context.Context, order *models.Order, next enums.OrderStatus) (*OrderDTO, error) {
	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invalid status transition").
			WithDetails(map[string]any{"from": string(order.Status), "to": string(next)})
	}
	if err := s.repo.UpdateStatus(ctx, order.ID, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	order.Status = next
	return orderFromModel(order), nil
}

func (s *service) loadOrderFor(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.CustomerID != userID && order.FarmerID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this order")
	}
	return order, nil
}
