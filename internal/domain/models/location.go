package models

import "github.com/google/uuid"

type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Address   string  `json:"address,omitempty"`
}

// HasCoordinates reports whether the point was resolved to coordinates.
func (l Location) HasCoordinates() bool {
	return l.Latitude != 0 || l.Longitude != 0
}

// ValidCoordinates reports whether the coordinates are on the globe.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// DriverLocation is forwarded to the rider while a driver heads to or carries them.
type DriverLocation struct {
	RideID   uuid.UUID `json:"ride_id"`
	DriverID uuid.UUID `json:"driver_id"`
	Location Location  `json:"location"`
}
