package models

import (
	"context"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// Identity is the verified caller supplied by the auth layer.
type Identity struct {
	ID   uuid.UUID      `json:"id"`
	Role types.UserRole `json:"role"`
}

func (i Identity) IsRider() bool  { return i.Role == types.RoleRider }
func (i Identity) IsDriver() bool { return i.Role == types.RoleDriver }

type identityKey struct{}

// WithIdentity stores the caller in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller stored by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

type Vehicle struct {
	Class types.VehicleClass `json:"class"`
	Model string             `json:"model,omitempty"`
	Plate string             `json:"plate,omitempty"`
	Color string             `json:"color,omitempty"`
}

type RatingAggregate struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Profile is a rider or driver as stored.
type Profile struct {
	ID       uuid.UUID          `json:"id"`
	Role     types.UserRole     `json:"role"`
	Name     string             `json:"name"`
	Phone    string             `json:"phone,omitempty"`
	Email    string             `json:"email,omitempty"`
	Rating   RatingAggregate    `json:"rating"`
	Vehicle  *Vehicle           `json:"vehicle,omitempty"`
	Presence types.DriverStatus `json:"presence,omitempty"`
}

// PartySummary is the part of a profile embedded in ride reads and pushes.
type PartySummary struct {
	ID      uuid.UUID       `json:"id"`
	Name    string          `json:"name"`
	Phone   string          `json:"phone,omitempty"`
	Rating  RatingAggregate `json:"rating"`
	Vehicle *Vehicle        `json:"vehicle,omitempty"`
}

func (p *Profile) Summary() *PartySummary {
	return &PartySummary{
		ID:      p.ID,
		Name:    p.Name,
		Phone:   p.Phone,
		Rating:  p.Rating,
		Vehicle: p.Vehicle,
	}
}
