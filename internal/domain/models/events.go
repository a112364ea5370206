package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// RideStatusEvent is published to the broker after every transition.
type RideStatusEvent struct {
	RideID        uuid.UUID          `json:"ride_id"`
	Status        types.RideStatus   `json:"status"`
	PrevStatus    types.RideStatus   `json:"prev_status,omitempty"`
	RiderID       uuid.UUID          `json:"rider_id"`
	DriverID      *uuid.UUID         `json:"driver_id,omitempty"`
	VehicleClass  types.VehicleClass `json:"vehicle_class"`
	Fare          float64            `json:"fare"`
	Timestamp     time.Time          `json:"timestamp"`
	CorrelationID string             `json:"correlation_id,omitempty"`
}

// NewRideStatusEvent snapshots a ride after a transition from prev. A cancelled
// ride reports the driver it released.
func NewRideStatusEvent(r *Ride, prev types.RideStatus, correlationID string) RideStatusEvent {
	var driverID *uuid.UUID
	if id, ok := r.AssignedDriver(); ok {
		driverID = &id
	}
	return RideStatusEvent{
		RideID:        r.ID,
		Status:        r.Status,
		PrevStatus:    prev,
		RiderID:       r.RiderID,
		DriverID:      driverID,
		VehicleClass:  r.VehicleClass,
		Fare:          r.Fare,
		Timestamp:     r.UpdatedAt,
		CorrelationID: correlationID,
	}
}

// AuditEntry is a row of the ride_events trail.
type AuditEntry struct {
	RideID uuid.UUID
	Event  types.RideEvent
	From   types.RideStatus
	To     types.RideStatus
	At     time.Time
}
