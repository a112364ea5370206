package geocoder

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

type GoogleClient struct {
	client *maps.Client
}

// NewGoogle builds a Google Maps geocoder. Extra options are passed to the maps client.
func NewGoogle(apiKey string, opts ...maps.ClientOption) (*GoogleClient, error) {
	c, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("google maps client: %w", err)
	}
	return &GoogleClient{client: c}, nil
}

func (g *GoogleClient) Geocode(ctx context.Context, address string) (models.Location, error) {
	ctx = wrap.WithAction(ctx, "google_geocode")

	res, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return models.Location{}, wrap.Error(wrap.WithAction(ctx, types.ActionExternalServiceFailed), fmt.Errorf("google geocode: %w", err))
	}
	if len(res) == 0 {
		return models.Location{}, wrap.Error(ctx, types.ErrLocationNotFound)
	}

	loc := res[0].Geometry.Location
	return models.Location{Latitude: loc.Lat, Longitude: loc.Lng, Address: address}, nil
}

func (g *GoogleClient) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	ctx = wrap.WithAction(ctx, "google_reverse_geocode")

	res, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{LatLng: &maps.LatLng{Lat: lat, Lng: lng}})
	if err != nil {
		return "", wrap.Error(wrap.WithAction(ctx, types.ActionExternalServiceFailed), fmt.Errorf("google reverse geocode: %w", err))
	}
	if len(res) == 0 {
		return "", wrap.Error(ctx, types.ErrLocationNotFound)
	}
	return res[0].FormattedAddress, nil
}
