// Package seed holds the demo riders and drivers used by local setups.
package seed

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

type Upserter interface {
	Upsert(ctx context.Context, p *models.Profile) error
}

// DefaultProfiles have fixed ids so tokens issued for them survive a reseed.
func DefaultProfiles() []*models.Profile {
	return []*models.Profile{
		{
			ID:    uuid.MustParse("6f1c2a9e-0d3b-4a8e-9b4f-1a2b3c4d5e01"),
			Role:  types.RoleRider,
			Name:  "Beka",
			Phone: "+77010000001",
			Email: "beka@ride.kz",
		},
		{
			ID:    uuid.MustParse("6f1c2a9e-0d3b-4a8e-9b4f-1a2b3c4d5e02"),
			Role:  types.RoleRider,
			Name:  "Aruzhan",
			Phone: "+77010000002",
			Email: "aruzhan@ride.kz",
		},
		{
			ID:      uuid.MustParse("6f1c2a9e-0d3b-4a8e-9b4f-1a2b3c4d5e11"),
			Role:    types.RoleDriver,
			Name:    "Mans",
			Phone:   "+77010000011",
			Email:   "mans@ride.kz",
			Vehicle: &models.Vehicle{Class: types.ClassCar, Model: "Toyota Camry", Plate: "123ABC02", Color: "white"},
		},
		{
			ID:      uuid.MustParse("6f1c2a9e-0d3b-4a8e-9b4f-1a2b3c4d5e12"),
			Role:    types.RoleDriver,
			Name:    "Temu",
			Phone:   "+77010000012",
			Email:   "temu@ride.kz",
			Vehicle: &models.Vehicle{Class: types.ClassMoto, Model: "Honda CB500", Plate: "456DEF02", Color: "black"},
		},
	}
}

// Apply upserts every default profile.
func Apply(ctx context.Context, store Upserter) ([]*models.Profile, error) {
	profiles := DefaultProfiles()
	for _, p := range profiles {
		if err := store.Upsert(ctx, p); err != nil {
			return nil, fmt.Errorf("seed %s: %w", p.Email, err)
		}
	}
	return profiles, nil
}
