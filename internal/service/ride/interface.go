package ride

import (
	"context"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
)

type RideStore interface {
	Create(ctx context.Context, ride *models.Ride) error
	Get(ctx context.Context, id uuid.UUID) (*models.Ride, error)
	ConditionalUpdate(ctx context.Context, id uuid.UUID, expected types.RideStatus, mutate func(*models.Ride) error) (*models.Ride, error)
	Query(ctx context.Context, f models.RideFilter) ([]*models.Ride, models.Metadata, error)
	FindActive(ctx context.Context, partyID uuid.UUID, role types.UserRole) (*models.Ride, error)
	RatingStats(ctx context.Context, partyID uuid.UUID, role types.UserRole) (float64, int, error)
}

type ProfileStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	// LockRating holds the party's aggregate for the enclosing transaction.
	LockRating(ctx context.Context, id uuid.UUID) error
	UpdateRating(ctx context.Context, id uuid.UUID, agg models.RatingAggregate) error
}

// Dispatcher offers pending rides to drivers and retracts the offers.
type Dispatcher interface {
	Dispatch(ctx context.Context, ride *models.Ride)
	ResolveTaken(ctx context.Context, rideID, winner uuid.UUID)
	ResolveLost(ctx context.Context, rideID, loser uuid.UUID)
	Withdraw(ctx context.Context, ride *models.Ride, by types.UserRole)
}

type Notifier interface {
	Notify(ctx context.Context, partyID uuid.UUID, event types.PushEvent, payload any)
}

// EventPublisher streams ride status changes to the broker.
type EventPublisher interface {
	PublishRideStatus(ctx context.Context, msg models.RideStatusEvent) error
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.Location, error)
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

type Estimator interface {
	Estimate(pickup, destination models.Location, class types.VehicleClass) ridecalc.Estimate
}
