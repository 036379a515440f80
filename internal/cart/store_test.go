package cart

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/agroconnect/agroconnect-backend/pkg/config"
	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
)

type fakeStorage struct {
	data    map[string]string
	setErr  error
	deleted [][]string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{data: map[string]string{}}
}

func (f *fakeStorage) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value.(string)
	return nil
}

func (f *fakeStorage) Get(ctx context.Context, key string) (string, error) {
	val, ok := f.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (f *fakeStorage) Del(ctx context.Context, keys ...string) error {
	f.deleted = append(f.deleted, keys)
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStorage) AnonCartKey(sessionID string) string {
	return "cart:anon:" + sessionID
}

func (f *fakeStorage) UserCartKey(userID string) string {
	return "cart:user:" + userID
}

func (f *fakeStorage) mustItems(t *testing.T, key string) []Item {
	t.Helper()
	raw, ok := f.data[key]
	if !ok {
		t.Fatalf("no cart stored at %s", key)
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		t.Fatalf("decode stored cart: %v", err)
	}
	return items
}

func testStore(t *testing.T) (*Store, *fakeStorage) {
	t.Helper()
	storage := newFakeStorage()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	store, err := NewStore(storage, config.CartConfig{TTL: time.Hour}, logg)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, storage
}

func qty(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func testProduct(stock string) *models.Product {
	return &models.Product{
		ID:            uuid.New(),
		FarmerID:      uuid.New(),
		Name:          "Tomatoes",
		Price:         qty("40.00"),
		DiscountPct:   25,
		StockQuantity: qty(stock),
		ImageURL:      "https://img.example.com/tomato.jpg",
	}
}

func anonScope(sessionID string) Scope {
	return Scope{SessionID: sessionID}
}

func fullScope(sessionID string, userID uuid.UUID) Scope {
	return Scope{SessionID: sessionID, UserID: &userID}
}

func TestAddInsertsAndIncrements(t *testing.T) {
	store, storage := testStore(t)
	ctx := context.Background()
	scope := anonScope("sess-1")
	product := testProduct("3")

	cart, err := store.Add(ctx, scope, product)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 1 {
		t.Fatalf("unexpected cart %+v", cart)
	}
	if !cart.Items[0].UnitPrice.Equal(qty("30.00")) {
		t.Fatalf("unit price should be discounted, got %s", cart.Items[0].UnitPrice)
	}
	if !cart.Total.Equal(qty("30.00")) {
		t.Fatalf("unexpected total %s", cart.Total)
	}

	cart, err = store.Add(ctx, scope, product)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if cart.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", cart.Items[0].Quantity)
	}

	stored := storage.mustItems(t, storage.AnonCartKey("sess-1"))
	if len(stored) != 1 || stored[0].Quantity != 2 {
		t.Fatalf("persisted cart out of sync: %+v", stored)
	}
}

func TestAddRejectsAtStockCap(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()
	scope := anonScope("sess-1")
	product := testProduct("2")

	for i := 0; i < 2; i++ {
		if _, err := store.Add(ctx, scope, product); err != nil {
			t.Fatalf("add %d: %v", i+1, err)
		}
	}

	cart, err := store.Add(ctx, scope, product)
	var domainErr *pkgerrors.Error
	if !errors.As(err, &domainErr) || domainErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict at stock cap, got %v", err)
	}
	if cart.Items[0].Quantity != 2 {
		t.Fatalf("cart must be unchanged on rejection, got qty %d", cart.Items[0].Quantity)
	}
}

func TestAddMultipleAllOrNothing(t *testing.T) {
	store, storage := testStore(t)
	ctx := context.Background()
	scope := anonScope("sess-1")
	product := testProduct("5")

	if _, err := store.AddMultiple(ctx, scope, product, 3); err != nil {
		t.Fatalf("add multiple: %v", err)
	}

	// 3 + 3 exceeds the cap of 5: nothing changes, not even a partial bump.
	_, err := store.AddMultiple(ctx, scope, product, 3)
	var domainErr *pkgerrors.Error
	if !errors.As(err, &domainErr) || domainErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	stored := storage.mustItems(t, storage.AnonCartKey("sess-1"))
	if stored[0].Quantity != 3 {
		t.Fatalf("expected quantity to stay 3, got %d", stored[0].Quantity)
	}

	if _, err := store.AddMultiple(ctx, scope, product, 2); err != nil {
		t.Fatalf("add up to cap should succeed: %v", err)
	}
}

func TestSetQuantityZeroRemoves(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()
	scope := anonScope("sess-1")
	product := testProduct("10")

	if _, err := store.AddMultiple(ctx, scope, product, 4); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	cart, err := store.SetQuantity(ctx, scope, product.ID, 0)
	if err != nil {
		t.Fatalf("set quantity 0: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", cart.Items)
	}
}

func TestSetQuantityRejectsOverStock(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()
	scope := anonScope("sess-1")
	product := testProduct("4")

	if _, err := store.Add(ctx, scope, product); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	cart, err := store.SetQuantity(ctx, scope, product.ID, 9)
	var domainErr *pkgerrors.Error
	if !errors.As(err, &domainErr) || domainErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if cart.Items[0].Quantity != 1 {
		t.Fatalf("cart must be unchanged, got qty %d", cart.Items[0].Quantity)
	}

	cart, err = store.SetQuantity(ctx, scope, product.ID, 4)
	if err != nil {
		t.Fatalf("set to cap should succeed: %v", err)
	}
	if cart.Items[0].Quantity != 4 {
		t.Fatalf("expected qty 4, got %d", cart.Items[0].Quantity)
	}
}

func TestDualWriteAfterLogin(t *testing.T) {
	store, storage := testStore(t)
	ctx := context.Background()
	userID := uuid.New()
	scope := fullScope("sess-1", userID)
	product := testProduct("10")

	if _, err := store.Add(ctx, scope, product); err != nil {
		t.Fatalf("add: %v", err)
	}

	anon := storage.mustItems(t, storage.AnonCartKey("sess-1"))
	user := storage.mustItems(t, storage.UserCartKey(userID.String()))
	if len(anon) != 1 || len(user) != 1 {
		t.Fatalf("both slots should hold the cart: anon=%d user=%d", len(anon), len(user))
	}
}

func TestClearDeletesBothSlots(t *testing.T) {
	store, storage := testStore(t)
	ctx := context.Background()
	userID := uuid.New()
	scope := fullScope("sess-1", userID)

	if _, err := store.Add(ctx, scope, testProduct("10")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Clear(ctx, scope); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if _, ok := storage.data[storage.AnonCartKey("sess-1")]; ok {
		t.Fatal("anon slot should be deleted")
	}
	if _, ok := storage.data[storage.UserCartKey(userID.String())]; ok {
		t.Fatal("user slot should be deleted")
	}
}

func TestMigrateCopiesOnceOnly(t *testing.T) {
	store, storage := testStore(t)
	ctx := context.Background()
	userID := uuid.New()

	// Seed an anonymous cart.
	if _, err := store.Add(ctx, anonScope("sess-1"), testProduct("10")); err != nil {
		t.Fatalf("seed anon cart: %v", err)
	}

	if err := store.Migrate(ctx, "sess-1", userID); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	migrated := storage.mustItems(t, storage.UserCartKey(userID.String()))
	if len(migrated) != 1 {
		t.Fatalf("expected migrated cart, got %+v", migrated)
	}

	// A second migration with a different anon cart must not overwrite.
	if _, err := store.AddMultiple(ctx, anonScope("sess-2"), testProduct("10"), 5); err != nil {
		t.Fatalf("seed second anon cart: %v", err)
	}
	if err := store.Migrate(ctx, "sess-2", userID); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	kept := storage.mustItems(t, storage.UserCartKey(userID.String()))
	if len(kept) != 1 || kept[0].Quantity != 1 {
		t.Fatalf("user slot should keep the original cart, got %+v", kept)
	}
}

func TestMalformedDocumentLoadsEmpty(t *testing.T) {
	store, storage := testStore(t)
	ctx := context.Background()
	storage.data[storage.AnonCartKey("sess-1")] = "{corrupt"

	cart, err := store.Load(ctx, anonScope("sess-1"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("corrupt cart should reset to empty, got %+v", cart.Items)
	}
}

func TestWriteFailureIsBestEffort(t *testing.T) {
	store, storage := testStore(t)
	ctx := context.Background()
	storage.setErr = errors.New("redis down")

	cart, err := store.Add(ctx, anonScope("sess-1"), testProduct("10"))
	if err != nil {
		t.Fatalf("add should not surface storage write errors: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("in-memory cart should still be returned, got %+v", cart.Items)
	}
}
