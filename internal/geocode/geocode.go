// Package geocode resolves textual locations to coordinates for device
// location pings.
package geocode

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

// Client resolves a city/state pair to a coordinate.
type Client interface {
	Forward(ctx context.Context, city, state string) (lat, lon float64, err error)
}

// HTTPClient is the real geocoding collaborator.
type HTTPClient struct {
	cfg    config.GeocodeConfig
	client *http.Client
}

// New creates a geocoding client with the configured timeout.
func New(cfg config.GeocodeConfig) *HTTPClient {
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type geocodeResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Forward returns the first match for a city/state query.
func (c *HTTPClient) Forward(ctx context.Context, city, state string) (float64, float64, error) {
	q := url.Values{}
	q.Set("city", city)
	q.Set("state", state)
	q.Set("format", "json")
	if c.cfg.APIKey != "" {
		q.Set("apikey", c.cfg.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create geocode request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocode api returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read geocode response: %w", err)
	}

	var results []geocodeResult
	if err := json.Unmarshal(body, &results); err != nil {
		return 0, 0, fmt.Errorf("failed to unmarshal geocode response: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("no geocode match for %s, %s", city, state)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid geocode latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid geocode longitude %q: %w", results[0].Lon, err)
	}
	return lat, lon, nil
}
