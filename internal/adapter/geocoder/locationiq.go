package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

const locationIQBaseURL = "https://us1.locationiq.com"

type LocationIQClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewLocationIQ(apiKey string) *LocationIQClient {
	return &LocationIQClient{
		apiKey:  apiKey,
		baseURL: locationIQBaseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Geocode resolves an address to the first matching point.
func (c *LocationIQClient) Geocode(ctx context.Context, address string) (models.Location, error) {
	const op = "LocationIQClient.Geocode"
	ctx = wrap.WithAction(ctx, "locationiq_geocode")

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", address)
	q.Set("format", "json")

	var results []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := c.get(ctx, "/v1/search", q, &results); err != nil {
		return models.Location{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if len(results) == 0 {
		return models.Location{}, wrap.Error(ctx, types.ErrLocationNotFound)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Location{}, wrap.Error(ctx, fmt.Errorf("%s: failed to parse latitude: %w", op, err))
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Location{}, wrap.Error(ctx, fmt.Errorf("%s: failed to parse longitude: %w", op, err))
	}

	return models.Location{Latitude: lat, Longitude: lng, Address: address}, nil
}

// Reverse returns the display address of a point.
func (c *LocationIQClient) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	const op = "LocationIQClient.Reverse"
	ctx = wrap.WithAction(ctx, "locationiq_reverse")

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("format", "json")

	var payload struct {
		Address string `json:"display_name"`
	}
	if err := c.get(ctx, "/v1/reverse", q, &payload); err != nil {
		return "", wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if payload.Address == "" {
		return "", wrap.Error(ctx, types.ErrLocationNotFound)
	}
	return payload.Address, nil
}

func (c *LocationIQClient) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request to LocationIQ: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return types.ErrLocationNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected response status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode data from LocationIQ response: %w", err)
	}
	return nil
}
