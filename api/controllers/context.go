package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/agroconnect/agroconnect-backend/api/middleware"
	cartsvc "github.com/agroconnect/agroconnect-backend/internal/cart"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
)

func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// cartScope builds the cart addressing for the request: the session header
// names the pre-login slot and the authenticated user, when present, names
// the account slot.
func cartScope(r *http.Request) cartsvc.Scope {
	scope := cartsvc.Scope{SessionID: middleware.CartSessionIDFromContext(r.Context())}
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			scope.UserID = &id
		}
	}
	return scope
}
