package driver

import (
	"context"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

/*=================Profile Repository======================*/

type ProfileRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	SetPresence(ctx context.Context, id uuid.UUID, status types.DriverStatus) error
}

/*=================Candidate Index=========================*/

type Locator interface {
	Upsert(ctx context.Context, p models.DriverPosition) error
	Remove(ctx context.Context, driverID uuid.UUID) error
}

/*=================Ride Repository=========================*/

type ActiveRideFinder interface {
	FindActive(ctx context.Context, partyID uuid.UUID, role types.UserRole) (*models.Ride, error)
}

/*=================Push / Geo==============================*/

type Notifier interface {
	Notify(ctx context.Context, partyID uuid.UUID, event types.PushEvent, payload any)
}

type GeoCoder interface {
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}
