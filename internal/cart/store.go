package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/agroconnect/agroconnect-backend/pkg/config"
	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
)

// Scope identifies whose cart is being read or written. SessionID addresses
// the pre-login slot; UserID, when set, addresses the account slot. Both may
// be present after login, and every write then lands in both slots so the
// cart survives the login transition.
type Scope struct {
	SessionID string
	UserID    *uuid.UUID
}

func (s Scope) empty() bool {
	return strings.TrimSpace(s.SessionID) == "" && s.UserID == nil
}

type storage interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AnonCartKey(sessionID string) string
	UserCartKey(userID string) string
}

// Store keeps carts in Redis, one JSON document per slot.
type Store struct {
	redis storage
	logg  *logger.Logger
	ttl   time.Duration
}

// NewStore builds a cart store backed by the provided Redis client.
func NewStore(redis storage, cfg config.CartConfig, logg *logger.Logger) (*Store, error) {
	if redis == nil {
		return nil, fmt.Errorf("redis storage is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Store{redis: redis, logg: logg, ttl: cfg.TTL}, nil
}

// Load returns the cart for the scope. The account slot wins when a user is
// logged in. A stored document that fails to parse is treated as an empty
// cart rather than an error.
func (s *Store) Load(ctx context.Context, scope Scope) (Cart, error) {
	if scope.empty() {
		return NewCart(nil), pkgerrors.New(pkgerrors.CodeValidation, "cart scope is required")
	}
	items := s.loadItems(ctx, scope)
	return NewCart(items), nil
}

// Add inserts the product at quantity one or increments the existing line.
// The increment is rejected when the line already sits at the remembered
// stock cap.
func (s *Store) Add(ctx context.Context, scope Scope, product *models.Product) (Cart, error) {
	return s.AddMultiple(ctx, scope, product, 1)
}

// AddMultiple increments the product's line by qty, all or nothing: when the
// resulting quantity would exceed the remembered stock the cart is left
// untouched and a conflict error is returned.
func (s *Store) AddMultiple(ctx context.Context, scope Scope, product *models.Product, qty int) (Cart, error) {
	if scope.empty() {
		return NewCart(nil), pkgerrors.New(pkgerrors.CodeValidation, "cart scope is required")
	}
	if product == nil {
		return NewCart(nil), pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}
	if qty <= 0 {
		return NewCart(nil), pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	items := s.loadItems(ctx, scope)
	idx := indexOf(items, product.ID)

	current := 0
	if idx >= 0 {
		current = items[idx].Quantity
	}
	stock := product.StockQuantity
	if idx >= 0 {
		stock = items[idx].Stock
	}
	if exceedsStock(current+qty, stock) {
		return NewCart(items), pkgerrors.New(pkgerrors.CodeConflict, "not enough stock for requested quantity").
			WithDetails(map[string]any{"product_id": product.ID, "stock": stock.String()})
	}

	if idx >= 0 {
		items[idx].Quantity += qty
	} else {
		line := ItemFromProduct(product)
		line.Quantity = qty
		items = append(items, line)
	}

	s.save(ctx, scope, items)
	return NewCart(items), nil
}

// Remove deletes the product's line. Removing an absent line is a no-op.
func (s *Store) Remove(ctx context.Context, scope Scope, productID uuid.UUID) (Cart, error) {
	if scope.empty() {
		return NewCart(nil), pkgerrors.New(pkgerrors.CodeValidation, "cart scope is required")
	}
	items := s.loadItems(ctx, scope)
	idx := indexOf(items, productID)
	if idx < 0 {
		return NewCart(items), nil
	}
	items = append(items[:idx], items[idx+1:]...)
	s.save(ctx, scope, items)
	return NewCart(items), nil
}

// SetQuantity pins the product's line to qty. Zero or negative behaves as
// Remove; a quantity above the remembered stock is rejected with the cart
// unchanged.
func (s *Store) SetQuantity(ctx context.Context, scope Scope, productID uuid.UUID, qty int) (Cart, error) {
	if qty <= 0 {
		return s.Remove(ctx, scope, productID)
	}
	if scope.empty() {
		return NewCart(nil), pkgerrors.New(pkgerrors.CodeValidation, "cart scope is required")
	}

	items := s.loadItems(ctx, scope)
	idx := indexOf(items, productID)
	if idx < 0 {
		return NewCart(items), pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	if exceedsStock(qty, items[idx].Stock) {
		return NewCart(items), pkgerrors.New(pkgerrors.CodeConflict, "not enough stock for requested quantity").
			WithDetails(map[string]any{"product_id": productID, "stock": items[idx].Stock.String()})
	}

	items[idx].Quantity = qty
	s.save(ctx, scope, items)
	return NewCart(items), nil
}

// Clear empties the cart and deletes both persisted slots.
func (s *Store) Clear(ctx context.Context, scope Scope) error {
	if scope.empty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart scope is required")
	}
	keys := make([]string, 0, 2)
	if strings.TrimSpace(scope.SessionID) != "" {
		keys = append(keys, s.redis.AnonCartKey(scope.SessionID))
	}
	if scope.UserID != nil {
		keys = append(keys, s.redis.UserCartKey(scope.UserID.String()))
	}
	if err := s.redis.Del(ctx, keys...); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("cart clear failed: %v", err))
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

// Migrate copies the anonymous cart into the user slot exactly once: when the
// user slot already holds a cart the anonymous one is discarded instead.
func (s *Store) Migrate(ctx context.Context, sessionID string, userID uuid.UUID) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	userKey := s.redis.UserCartKey(userID.String())
	if _, err := s.redis.Get(ctx, userKey); err == nil {
		return nil
	} else if !errors.Is(err, redislib.Nil) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read user cart")
	}

	anonKey := s.redis.AnonCartKey(sessionID)
	raw, err := s.redis.Get(ctx, anonKey)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read anonymous cart")
	}

	if err := s.redis.Set(ctx, userKey, raw, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "copy cart to user slot")
	}
	return nil
}

func (s *Store) loadItems(ctx context.Context, scope Scope) []Item {
	key := ""
	if scope.UserID != nil {
		key = s.redis.UserCartKey(scope.UserID.String())
	} else {
		key = s.redis.AnonCartKey(scope.SessionID)
	}

	raw, err := s.redis.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redislib.Nil) {
			s.logg.Warn(ctx, fmt.Sprintf("cart read failed: %v", err))
		}
		return nil
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		// A corrupt document resets the cart rather than wedging it.
		s.logg.Warn(ctx, fmt.Sprintf("cart document malformed, resetting: %v", err))
		return nil
	}
	return items
}

// save writes the serialized cart to every slot the scope addresses. Redis
// write failures are logged, not returned: the in-memory cart the caller got
// back is still correct and the next mutation retries the write.
func (s *Store) save(ctx context.Context, scope Scope, items []Item) {
	if items == nil {
		items = []Item{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		s.logg.Error(ctx, "marshal cart", err)
		return
	}
	if strings.TrimSpace(scope.SessionID) != "" {
		if err := s.redis.Set(ctx, s.redis.AnonCartKey(scope.SessionID), string(payload), s.ttl); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("cart write (anon slot) failed: %v", err))
		}
	}
	if scope.UserID != nil {
		if err := s.redis.Set(ctx, s.redis.UserCartKey(scope.UserID.String()), string(payload), s.ttl); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("cart write (user slot) failed: %v", err))
		}
	}
}

func indexOf(items []Item, productID uuid.UUID) int {
	for i := range items {
		if items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func exceedsStock(qty int, stock decimal.Decimal) bool {
	return decimal.NewFromInt(int64(qty)).GreaterThan(stock)
}
