package controllers

import (
	"net/http"

	"github.com/agroconnect/agroconnect-backend/api/responses"
	"github.com/agroconnect/agroconnect-backend/api/validators"
	feedbacksvc "github.com/agroconnect/agroconnect-backend/internal/feedback"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
)

// SubmitFeedback records the customer's rating, replacing any earlier one.
func SubmitFeedback(svc feedbacksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload feedbacksvc.SubmitInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		feedback, err := svc.Submit(r.Context(), customerID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, feedback)
	}
}

// ListProductFeedback returns all ratings left on a product.
func ListProductFeedback(svc feedbacksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		feedback, err := svc.ListForProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, feedback)
	}
}
