package geocoder

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// Disabled is used when no provider is configured; rides must then carry coordinates.
type Disabled struct{}

func (Disabled) Geocode(context.Context, string) (models.Location, error) {
	return models.Location{}, types.ErrGeocoderDisabled
}

func (Disabled) Reverse(context.Context, float64, float64) (string, error) {
	return "", types.ErrGeocoderDisabled
}
