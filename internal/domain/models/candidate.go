package models

import (
	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// Candidate is a driver near a pickup point, as returned by the locator.
type Candidate struct {
	DriverID     uuid.UUID          `json:"driver_id"`
	Location     Location           `json:"location"`
	VehicleClass types.VehicleClass `json:"vehicle_class"`
	Status       types.DriverStatus `json:"status"`
	DistanceKm   float64            `json:"distance_km"`
}

// Available reports whether the driver accepts offers.
func (c Candidate) Available() bool {
	return c.Status == types.DriverAvailable
}

// DriverPosition is what the locator indexes for a driver.
type DriverPosition struct {
	DriverID     uuid.UUID
	Location     Location
	VehicleClass types.VehicleClass
	Status       types.DriverStatus
}
