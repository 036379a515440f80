package controllers

import (
	"net/http"

	"github.com/agroconnect/agroconnect-backend/api/responses"
	dashboardsvc "github.com/agroconnect/agroconnect-backend/internal/dashboard"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
)

// FarmerDashboard aggregates the farmer's listings, orders and unread chats.
func FarmerDashboard(svc dashboardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farmerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), farmerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}
