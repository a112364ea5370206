package dispatch

import (
	"context"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

// RideReader reads the current state of a ride.
type RideReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Ride, error)
}

// Locator finds drivers near a point.
type Locator interface {
	FindCandidates(ctx context.Context, lat, lng, radiusKm float64, class types.VehicleClass) ([]models.Candidate, error)
}

// Registry reports which parties have a live connection.
type Registry interface {
	Lookup(id uuid.UUID) (ws.Channel, bool)
}

type Notifier interface {
	Send(ctx context.Context, partyID uuid.UUID, event types.PushEvent, payload any) ws.Outcome
	Notify(ctx context.Context, partyID uuid.UUID, event types.PushEvent, payload any)
}

// OfferTracker remembers which drivers hold an offer for a ride.
type OfferTracker interface {
	Record(ctx context.Context, rideID uuid.UUID, driverIDs []uuid.UUID) error
	Take(ctx context.Context, rideID, driverID uuid.UUID) (bool, error)
	Drain(ctx context.Context, rideID uuid.UUID) ([]uuid.UUID, error)
}
