package controllers

import (
	"net/http"
	"strings"

	"github.com/agroconnect/agroconnect-backend/api/responses"
	"github.com/agroconnect/agroconnect-backend/api/validators"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
	"github.com/agroconnect/agroconnect-backend/pkg/weather"
)

const maxForecastDays = 7

// CurrentWeather proxies current conditions for the requested location.
func CurrentWeather(client *weather.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := strings.TrimSpace(r.URL.Query().Get("location"))
		if location == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "location is required"))
			return
		}

		report, err := client.CurrentWeather(r.Context(), location)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

// WeatherForecast proxies the multi-day forecast for the requested location.
func WeatherForecast(client *weather.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := strings.TrimSpace(r.URL.Query().Get("location"))
		if location == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "location is required"))
			return
		}

		days, err := validators.ParseQueryInt(r, "days", 3, 1, maxForecastDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := client.Forecast(r.Context(), location, days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}
