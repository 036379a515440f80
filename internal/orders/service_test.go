package orders

import (
	"context"
	"io"
	"testing"
	"time"

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

type fakeOrderRepo struct {
	orders map[uuid.UUID]*models.Order
	stock  map[uuid.UUID]decimal.Decimal
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: map[uuid.UUID]*models.Order{},
		stock:  map[uuid.UUID]decimal.Decimal{},
	}
}

func (f *fakeOrderRepo) CreateWithStock(ctx context.Context, order *models.Order, lines []StockLine) (*models.Order, error) {
	for _, line := range lines {
		remaining, ok := f.stock[line.ProductID]
		if !ok || remaining.LessThan(line.Quantity) {
			return nil, products.ErrInsufficientStock
		}
	}
	for _, line := range lines {
		f.stock[line.ProductID] = f.stock[line.ProductID].Sub(line.Quantity)
	}
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderRepo) List(ctx context.Context, input ListOrdersInput) ([]models.Order, error) {
	var out []models.Order
	for _, order := range f.orders {
		if input.Role == enums.UserRoleFarmer && order.FarmerID == input.UserID {
			out = append(out, *order)
		}
		if input.Role == enums.UserRoleCustomer && order.CustomerID == input.UserID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	f.orders[id].Status = status
	return nil
}

func (f *fakeOrderRepo) SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) error {
	f.orders[id].PaymentIntentID = &intentID
	return nil
}

type fakeCatalog struct {
	products map[uuid.UUID]models.Product
}

func (f *fakeCatalog) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if product, ok := f.products[id]; ok {
			out = append(out, product)
		}
	}
	return out, nil
}

type fakePayments struct {
	intents map[string]*stripe.PaymentIntent
	created int
}

func newFakePayments() *fakePayments {
	return &fakePayments{intents: map[string]*stripe.PaymentIntent{}}
}

func (f *fakePayments) CreatePaymentIntent(ctx context.Context, total decimal.Decimal, currency, orderID string) (*stripe.PaymentIntent, error) {
	f.created++
	intent := &stripe.PaymentIntent{
		ID:           "pi_" + orderID,
		ClientSecret: "pi_" + orderID + "_secret",
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
	}
	f.intents[intent.ID] = intent
	return intent, nil
}

func (f *fakePayments) RetrievePaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error) {
	return f.intents[intentID], nil
}

func (f *fakePayments) succeed(intentID string) {
	f.intents[intentID].Status = stripe.PaymentIntentStatusSucceeded
}

type orderFixture struct {
	svc      Service
	repo     *fakeOrderRepo
	catalog  *fakeCatalog
	payments *fakePayments
	farmerID uuid.UUID
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	fx := &orderFixture{
		repo:     newFakeOrderRepo(),
		catalog:  &fakeCatalog{products: map[uuid.UUID]models.Product{}},
		payments: newFakePayments(),
		farmerID: uuid.New(),
	}
	fx.svc = NewService(ServiceParams{
		Repo:     fx.repo,
		Products: fx.catalog,
		Payments: fx.payments,
		Logger:   logger.New(logger.Options{Output: io.Discard}),
	})
	return fx
}

func (fx *orderFixture) seedProduct(price int64, discountPct int, stock int64) uuid.UUID {
	product := models.Product{
		ID:            uuid.New(),
		FarmerID:      fx.farmerID,
		Name:          "carrots",
		Price:         decimal.NewFromInt(price),
		DiscountPct:   discountPct,
		StockQuantity: decimal.NewFromInt(stock),
	}
	fx.catalog.products[product.ID] = product
	fx.repo.stock[product.ID] = product.StockQuantity
	return product.ID
}

func orderCodeOf(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	coded := pkgerrors.As(err)
	if coded == nil {
		t.Fatalf("expected a coded error, got %v", err)
	}
	return coded.Code()
}

func TestCreateOrderPricesAndReservesStock(t *testing.T) {
	fx := newOrderFixture(t)
	productID := fx.seedProduct(100, 10, 20)
	customerID := uuid.New()

	order, err := fx.svc.CreateOrder(context.Background(), customerID, CreateOrderInput{
		FarmerID: fx.farmerID,
		Lines:    []OrderLineInput{{ProductID: productID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if order.Status != enums.OrderStatusPending {
		t.Fatalf("new orders start pending, got %s", order.Status)
	}
	if !order.Total.Equal(decimal.NewFromInt(270)) {
		t.Fatalf("expected total 270 at the discounted price, got %s", order.Total)
	}
	if len(order.Items) != 1 || !order.Items[0].UnitPrice.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("unexpected items %+v", order.Items)
	}
	if !fx.repo.stock[productID].Equal(decimal.NewFromInt(17)) {
		t.Fatalf("stock should drop to 17, got %s", fx.repo.stock[productID])
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	fx := newOrderFixture(t)
	productID := fx.seedProduct(50, 0, 2)

	_, err := fx.svc.CreateOrder(context.Background(), uuid.New(), CreateOrderInput{
		FarmerID: fx.farmerID,
		Lines:    []OrderLineInput{{ProductID: productID, Quantity: 5}},
	})
	if got := orderCodeOf(t, err); got != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %s", got)
	}
	if len(fx.repo.orders) != 0 {
		t.Fatal("failed order must not persist")
	}
	if !fx.repo.stock[productID].Equal(decimal.NewFromInt(2)) {
		t.Fatal("failed order must not move stock")
	}
}

func TestCreateOrderValidatesLines(t *testing.T) {
	fx := newOrderFixture(t)
	productID := fx.seedProduct(50, 0, 10)
	customerID := uuid.New()

	_, err := fx.svc.CreateOrder(context.Background(), customerID, CreateOrderInput{FarmerID: fx.farmerID})
	if got := orderCodeOf(t, err); got != pkgerrors.CodeValidation {
		t.Fatalf("expected validation for no lines, got %s", got)
	}

	_, err = fx.svc.CreateOrder(context.Background(), customerID, CreateOrderInput{
		FarmerID: fx.farmerID,
		Lines:    []OrderLineInput{{ProductID: productID, Quantity: 0}},
	})
	if got := orderCodeOf(t, err); got != pkgerrors.CodeValidation {
		t.Fatalf("expected validation for zero quantity, got %s", got)
	}

	_, err = fx.svc.CreateOrder(context.Background(), customerID, CreateOrderInput{
		FarmerID: fx.farmerID,
		Lines:    []OrderLineInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	if got := orderCodeOf(t, err); got != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown product, got %s", got)
	}

	_, err = fx.svc.CreateOrder(context.Background(), customerID, CreateOrderInput{
		FarmerID: uuid.New(),
		Lines:    []OrderLineInput{{ProductID: productID, Quantity: 1}},
	})
	if got := orderCodeOf(t, err); got != pkgerrors.CodeValidation {
		t.Fatalf("expected validation for cross-farmer product, got %s", got)
	}
}

func TestPaymentFlowMovesOrderToPaid(t *testing.T) {
	fx := newOrderFixture(t)
	productID := fx.seedProduct(40, 0, 10)
	customerID := uuid.New()

	order, err := fx.svc.CreateOrder(context.Background(), customerID, CreateOrderInput{
		FarmerID: fx.farmerID,
		Lines:    []OrderLineInput{{ProductID: productID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	intent, err := fx.svc.CreatePaymentIntent(context.Background(), order.ID, customerID)
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.ClientSecret == "" {
		t.Fatal("client secret must reach the caller")
	}

	// Stripe has not seen the money yet.
	_, err = fx.svc.ConfirmPayment(context.Background(), order.ID, customerID)
	if got := orderCodeOf(t, err); got != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict before the intent succeeds, got %s", got)
	}

	fx.payments.succeed(intent.IntentID)
	paid, err := fx.svc.ConfirmPayment(context.Background(), order.ID, customerID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if paid.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", paid.Status)
	}
}

func TestConfirmPaymentRequiresIntent(t *testing.T) {
	fx := newOrderFixture(t)
	productID := fx.seedProduct(40, 0, 10)
	customerID := uuid.New()

	order, err := fx.svc.CreateOrder(context.Background(), customerID, CreateOrderInput{
		FarmerID: fx.farmerID,
		Lines:    []OrderLineInput{{ProductID: productID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = fx.svc.ConfirmPayment(context.Background(), order.ID, customerID)
	if got := orderCodeOf(t, err); got != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict without an intent, got %s", got)
	}
}

func TestLifecycleEnforcesTransitionsAndParties(t *testing.T) {
	fx := newOrderFixture(t)
	productID := fx.seedProduct(40, 0, 10)
	customerID := uuid.New()

	order, err := fx.svc.CreateOrder(context.Background(), customerID, CreateOrderInput{
		FarmerID: fx.farmerID,
		Lines:    []OrderLineInput{{ProductID: productID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Shipping an unpaid order is out of order.
	_, err = fx.svc.Ship(context.Background(), order.ID, fx.farmerID)
	if got := orderCodeOf(t, err); got != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", got)
	}

	fx.repo.orders[order.ID].Status = enums.OrderStatusPaid

	// Only the selling farmer ships.
	_, err = fx.svc.Ship(context.Background(), order.ID, customerID)
	if got := orderCodeOf(t, err); got != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %s", got)
	}
	shipped, err := fx.svc.Ship(context.Background(), order.ID, fx.farmerID)
	if err != nil || shipped.Status != enums.OrderStatusShipped {
		t.Fatalf("ship: %v %+v", err, shipped)
	}

	// Only the buyer confirms receipt.
	_, err = fx.svc.ConfirmReceipt(context.Background(), order.ID, fx.farmerID)
	if got := orderCodeOf(t, err); got != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %s", got)
	}
	received, err := fx.svc.ConfirmReceipt(context.Background(), order.ID, customerID)
	if err != nil || received.Status != enums.OrderStatusReceived {
		t.Fatalf("receive: %v %+v", err, received)
	}

	// A stranger sees nothing.
	_, err = fx.svc.GetOrder(context.Background(), order.ID, uuid.New())
	if got := orderCodeOf(t, err); got != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for strangers, got %s", got)
	}
}

func TestListOrdersFiltersByRole(t *testing.T) {
	fx := newOrderFixture(t)
	productID := fx.seedProduct(40, 0, 100)
	buyerA, buyerB := uuid.New(), uuid.New()

	for _, buyer := range []uuid.UUID{buyerA, buyerA, buyerB} {
		if _, err := fx.svc.CreateOrder(context.Background(), buyer, CreateOrderInput{
			FarmerID: fx.farmerID,
			Lines:    []OrderLineInput{{ProductID: productID, Quantity: 1}},
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	buyerPage, err := fx.svc.ListOrders(context.Background(), ListOrdersInput{
		UserID: buyerA, Role: enums.UserRoleCustomer, Pagination: pagination.Params{Limit: 10},
	})
	if err != nil || len(buyerPage.Items) != 2 {
		t.Fatalf("expected buyer A to see 2 orders, got %v %d", err, len(buyerPage.Items))
	}

	farmerPage, err := fx.svc.ListOrders(context.Background(), ListOrdersInput{
		UserID: fx.farmerID, Role: enums.UserRoleFarmer, Pagination: pagination.Params{Limit: 10},
	})
	if err != nil || len(farmerPage.Items) != 3 {
		t.Fatalf("expected the farmer to see all 3 orders, got %v %d", err, len(farmerPage.Items))
	}
}
