package controllers

import (
	"net/http"

	"github.com/agroconnect/agroconnect-backend/api/responses"
	checkoutsvc "github.com/agroconnect/agroconnect-backend/internal/checkout"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
)

// Checkout converts the customer's cart into chat rooms, one per farmer,
// and reports which farmers could not be reached.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), cartScope(r), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
