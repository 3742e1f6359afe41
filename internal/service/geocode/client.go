package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrAddressRequired = errors.New("address is required")
	ErrNotConfigured   = errors.New("geocoding is not configured")
	ErrNoResults       = errors.New("could not find a location for that address, please check the address or postal code")
)

// Coordinates is the resolved position of an address.
type Coordinates struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formattedAddress,omitempty"`
	Source           string  `json:"source"`
}

// Client queries the Google Geocoding API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new geocoding client
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSpace(baseURL),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves address to coordinates using the first result.
func (c *Client) Geocode(ctx context.Context, address string) (Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Coordinates{}, ErrAddressRequired
	}
	if c == nil || c.apiKey == "" {
		return Coordinates{}, ErrNotConfigured
	}

	query := url.Values{}
	query.Set("address", address)
	query.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Coordinates{}, fmt.Errorf("geocoding returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Coordinates{}, fmt.Errorf("failed to parse response: %w", err)
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS":
		return Coordinates{}, ErrNoResults
	default:
		if payload.ErrorMessage != "" {
			return Coordinates{}, fmt.Errorf("geocoding failed: %s: %s", payload.Status, payload.ErrorMessage)
		}
		return Coordinates{}, fmt.Errorf("geocoding failed: %s", payload.Status)
	}
	if len(payload.Results) == 0 {
		return Coordinates{}, ErrNoResults
	}

	first := payload.Results[0]
	return Coordinates{
		Latitude:         first.Geometry.Location.Lat,
		Longitude:        first.Geometry.Location.Lng,
		FormattedAddress: first.FormattedAddress,
		Source:           "address",
	}, nil
}
