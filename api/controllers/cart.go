package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agroconnect/agroconnect-backend/api/middleware"
	"github.com/agroconnect/agroconnect-backend/api/responses"
	"github.com/agroconnect/agroconnect-backend/api/validators"
	cartsvc "github.com/agroconnect/agroconnect-backend/internal/cart"
	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
)

type cartProductFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"omitempty,gt=0"`
}

type setCartQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

func loadCartProduct(ctx context.Context, finder cartProductFinder, productID uuid.UUID) (*models.Product, error) {
	product, err := finder.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

// GetCart returns the cart for the caller's scope.
func GetCart(store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := store.Load(r.Context(), cartScope(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// AddCartItem adds the product, defaulting to quantity one.
func AddCartItem(store *cartsvc.Store, finder cartProductFinder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := loadCartProduct(r.Context(), finder, payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		qty := payload.Quantity
		if qty == 0 {
			qty = 1
		}

		cart, err := store.AddMultiple(r.Context(), cartScope(r), product, qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// SetCartQuantity pins the product's line to an exact quantity. Zero
// removes the line.
func SetCartQuantity(store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setCartQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := store.SetQuantity(r.Context(), cartScope(r), productID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// RemoveCartItem deletes the product's line from the cart.
func RemoveCartItem(store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := store.Remove(r.Context(), cartScope(r), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// ClearCart empties every slot the scope addresses.
func ClearCart(store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Clear(r.Context(), cartScope(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

// MigrateCart moves the anonymous cart into the account slot after login.
func MigrateCart(store *cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := middleware.CartSessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session header required"))
			return
		}

		if err := store.Migrate(r.Context(), sessionID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := store.Load(r.Context(), cartScope(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}
