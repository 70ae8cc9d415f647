// Package weather provides a best-effort current-weather lookup for
// stats responses. Failures here never fail the enclosing request.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"solar-monitor-backend/config"
)

// Client fetches current weather for a coordinate.
type Client interface {
	CurrentTemperature(ctx context.Context, lat, lon float64) (float64, error)
}

// HTTPClient is the real weather collaborator.
type HTTPClient struct {
	cfg    config.WeatherConfig
	client *http.Client
}

// New creates a weather client with the configured timeout.
func New(cfg config.WeatherConfig) *HTTPClient {
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type forecastResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
	} `json:"current_weather"`
}

// CurrentTemperature returns the current temperature in °C at the
// given coordinate.
func (c *HTTPClient) CurrentTemperature(ctx context.Context, lat, lon float64) (float64, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("current_weather", "true")
	if c.cfg.APIKey != "" {
		q.Set("apikey", c.cfg.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create weather request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("weather api returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read weather response: %w", err)
	}

	var forecast forecastResponse
	if err := json.Unmarshal(body, &forecast); err != nil {
		return 0, fmt.Errorf("failed to unmarshal weather response: %w", err)
	}
	return forecast.CurrentWeather.Temperature, nil
}
