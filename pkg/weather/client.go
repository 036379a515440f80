package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.weatherapi.com/v1"
	maxForecastDays             = 10
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("weather api key is required")

// Client wraps the WeatherAPI endpoints used for farm planning.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured WeatherAPI base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the weather client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Current holds the observed conditions for a location.
type Current struct {
	TempC      float64 `json:"temp_c"`
	Condition  string  `json:"condition"`
	WindKph    float64 `json:"wind_kph"`
	Humidity   int     `json:"humidity"`
	PrecipMM   float64 `json:"precip_mm"`
	UV         float64 `json:"uv"`
	ObservedAt string  `json:"observed_at"`
}

// Location identifies the resolved place for a query.
type Location struct {
	Name    string  `json:"name"`
	Region  string  `json:"region"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// ForecastDay summarizes one day of the forecast window.
type ForecastDay struct {
	Date         string  `json:"date"`
	MaxTempC     float64 `json:"max_temp_c"`
	MinTempC     float64 `json:"min_temp_c"`
	AvgHumidity  float64 `json:"avg_humidity"`
	TotalPrecipM float64 `json:"total_precip_mm"`
	ChanceOfRain int     `json:"chance_of_rain"`
	Condition    string  `json:"condition"`
}

// Alert carries a government weather warning for the area.
type Alert struct {
	Headline string `json:"headline"`
	Severity string `json:"severity"`
	Event    string `json:"event"`
	Expires  string `json:"expires"`
}

// Report is the combined payload served to farmers.
type Report struct {
	Location Location      `json:"location"`
	Current  Current       `json:"current"`
	Forecast []ForecastDay `json:"forecast"`
	Alerts   []Alert       `json:"alerts"`
}

// CurrentWeather returns observed conditions for a city name or "lat,lon" pair.
func (c *Client) CurrentWeather(ctx context.Context, location string) (*Report, error) {
	return c.fetch(ctx, "current.json", location, 0)
}

// Forecast returns conditions plus an n-day outlook with alerts.
func (c *Client) Forecast(ctx context.Context, location string, days int) (*Report, error) {
	if days <= 0 {
		days = 3
	}
	if days > maxForecastDays {
		days = maxForecastDays
	}
	return c.fetch(ctx, "forecast.json", location, days)
}

func (c *Client) fetch(ctx context.Context, endpoint, location string, days int) (*Report, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "weather client not configured")
	}
	if strings.TrimSpace(location) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	}

	query := url.Values{}
	query.Set("key", c.apiKey)
	query.Set("q", strings.TrimSpace(location))
	query.Set("aqi", "yes")
	if days > 0 {
		query.Set("days", strconv.Itoa(days))
		query.Set("alerts", "yes")
	}

	endpointURL := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.baseURL, "/"), endpoint, query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build weather request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute weather request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "weather request failed")
	}

	var apiResp struct {
		Location struct {
			Name    string  `json:"name"`
			Region  string  `json:"region"`
			Country string  `json:"country"`
			Lat     float64 `json:"lat"`
			Lon     float64 `json:"lon"`
		} `json:"location"`
		Current struct {
			TempC     float64 `json:"temp_c"`
			Condition struct {
				Text string `json:"text"`
			} `json:"condition"`
			WindKph     float64 `json:"wind_kph"`
			Humidity    int     `json:"humidity"`
			PrecipMM    float64 `json:"precip_mm"`
			UV          float64 `json:"uv"`
			LastUpdated string  `json:"last_updated"`
		} `json:"current"`
		Forecast struct {
			ForecastDay []struct {
				Date string `json:"date"`
				Day  struct {
					MaxTempC          float64 `json:"maxtemp_c"`
					MinTempC          float64 `json:"mintemp_c"`
					AvgHumidity       float64 `json:"avghumidity"`
					TotalPrecipMM     float64 `json:"totalprecip_mm"`
					DailyChanceOfRain int     `json:"daily_chance_of_rain"`
					Condition         struct {
						Text string `json:"text"`
					} `json:"condition"`
				} `json:"day"`
			} `json:"forecastday"`
		} `json:"forecast"`
		Alerts struct {
			Alert []struct {
				Headline string `json:"headline"`
				Severity string `json:"severity"`
				Event    string `json:"event"`
				Expires  string `json:"expires"`
			} `json:"alert"`
		} `json:"alerts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode weather response")
	}

	report := &Report{
		Location: Location{
			Name:    apiResp.Location.Name,
			Region:  apiResp.Location.Region,
			Country: apiResp.Location.Country,
			Lat:     apiResp.Location.Lat,
			Lon:     apiResp.Location.Lon,
		},
		Current: Current{
			TempC:      apiResp.Current.TempC,
			Condition:  apiResp.Current.Condition.Text,
			WindKph:    apiResp.Current.WindKph,
			Humidity:   apiResp.Current.Humidity,
			PrecipMM:   apiResp.Current.PrecipMM,
			UV:         apiResp.Current.UV,
			ObservedAt: apiResp.Current.LastUpdated,
		},
	}

	for _, day := range apiResp.Forecast.ForecastDay {
		report.Forecast = append(report.Forecast, ForecastDay{
			Date:         day.Date,
			MaxTempC:     day.Day.MaxTempC,
			MinTempC:     day.Day.MinTempC,
			AvgHumidity:  day.Day.AvgHumidity,
			TotalPrecipM: day.Day.TotalPrecipMM,
			ChanceOfRain: day.Day.DailyChanceOfRain,
			Condition:    day.Day.Condition.Text,
		})
	}
	for _, alert := range apiResp.Alerts.Alert {
		report.Alerts = append(report.Alerts, Alert{
			Headline: alert.Headline,
			Severity: alert.Severity,
			Event:    alert.Event,
			Expires:  alert.Expires,
		})
	}

	return report, nil
}
