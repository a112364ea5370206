package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

/*
Service keeps the candidate index in step with driver presence: online drivers are
indexed with their vehicle class and last position, offline drivers are removed.
*/
type Service struct {
	profiles ProfileRepo
	locator  Locator
	rides    ActiveRideFinder
	notifier Notifier
	geocoder GeoCoder
	service  string

	l logger.Logger
}

// New returns a new instance of the driver presence service with all dependencies injected.
func New(profiles ProfileRepo, locator Locator, rides ActiveRideFinder, notifier Notifier, geocoder GeoCoder, service string, l logger.Logger) *Service {
	return &Service{
		profiles: profiles,
		locator:  locator,
		rides:    rides,
		notifier: notifier,
		geocoder: geocoder,
		service:  service,
		l:        l,
	}
}

// GoOnline puts a driver into "available" mode and indexes the current coordinates.
func (s *Service) GoOnline(ctx context.Context, driverID uuid.UUID, lat, lng float64) error {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionDriverOnline), driverID.String())

	if err := checkCoordinates(lat, lng); err != nil {
		return err
	}

	d, err := s.driver(ctx, driverID)
	if err != nil {
		return err
	}
	if d.Vehicle == nil || !d.Vehicle.Class.Valid() {
		v := validator.New()
		v.AddError("vehicle", "driver has no registered vehicle class")
		return fmt.Errorf("%w: %w", types.ErrInvalidInput, v)
	}

	if err := s.profiles.SetPresence(ctx, driverID, types.DriverAvailable); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to change driver status: %w", err))
	}

	// Reverse geocoding: get address by latitude and longitude
	address, err := s.geocoder.Reverse(ctx, lat, lng)
	if err != nil {
		s.l.Debug(ctx, "failed to get address", "error", err.Error())
	}

	if err := s.locator.Upsert(ctx, models.DriverPosition{
		DriverID:     driverID,
		Location:     models.Location{Latitude: lat, Longitude: lng, Address: address},
		VehicleClass: d.Vehicle.Class,
		Status:       types.DriverAvailable,
	}); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to index driver position: %w", err))
	}

	if d.Presence != types.DriverAvailable {
		metrics.DriversOnlineGauge.WithLabelValues(s.service).Inc()
	}
	s.l.Info(ctx, "driver is online", "vehicle_class", d.Vehicle.Class.String())
	return nil
}

// GoOffline marks the driver offline and drops them from the candidate index.
func (s *Service) GoOffline(ctx context.Context, driverID uuid.UUID) error {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionDriverOffline), driverID.String())

	d, err := s.driver(ctx, driverID)
	if err != nil {
		return err
	}

	if err := s.profiles.SetPresence(ctx, driverID, types.DriverOffline); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to change driver status: %w", err))
	}
	if err := s.locator.Remove(ctx, driverID); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to remove driver position: %w", err))
	}

	if d.Presence == types.DriverAvailable {
		metrics.DriversOnlineGauge.WithLabelValues(s.service).Dec()
	}
	s.l.Info(ctx, "driver is offline")
	return nil
}

// UpdateLocation re-indexes an online driver and forwards the position to the rider
// of the driver's accepted or ongoing ride.
func (s *Service) UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64) error {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionDriverLocation), driverID.String())

	if err := checkCoordinates(lat, lng); err != nil {
		return err
	}

	d, err := s.driver(ctx, driverID)
	if err != nil {
		return err
	}
	if d.Presence != types.DriverAvailable {
		return wrap.Error(ctx, types.ErrDriverOffline)
	}

	loc := models.Location{Latitude: lat, Longitude: lng}
	pos := models.DriverPosition{DriverID: driverID, Location: loc, Status: d.Presence}
	if d.Vehicle != nil {
		pos.VehicleClass = d.Vehicle.Class
	}
	if err := s.locator.Upsert(ctx, pos); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to index driver position: %w", err))
	}

	ride, err := s.rides.FindActive(ctx, driverID, types.RoleDriver)
	if errors.Is(err, types.ErrNoActiveRide) {
		return nil
	}
	if err != nil {
		// the index is updated; only the forward is lost
		s.l.Warn(ctx, "failed to look up active ride", "error", err.Error())
		return nil
	}

	if ride.Status == types.StatusAccepted || ride.Status == types.StatusOngoing {
		s.notifier.Notify(wrap.WithRideID(ctx, ride.ID.String()), ride.RiderID, types.EventDriverLocation, models.DriverLocation{
			RideID:   ride.ID,
			DriverID: driverID,
			Location: loc,
		})
	}
	return nil
}

func (s *Service) driver(ctx context.Context, driverID uuid.UUID) (*models.Profile, error) {
	p, err := s.profiles.Get(ctx, driverID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return nil, wrap.Error(ctx, err)
		}
		return nil, wrap.Error(ctx, fmt.Errorf("failed to get driver: %w", err))
	}
	if p.Role != types.RoleDriver {
		return nil, wrap.Error(ctx, types.ErrNotDriver)
	}
	return p, nil
}

func checkCoordinates(lat, lng float64) error {
	v := validator.New()
	v.Check(lat >= -90 && lat <= 90, "lat", "must be between -90 and 90")
	v.Check(lng >= -180 && lng <= 180, "lng", "must be between -180 and 180")
	if !v.Valid() {
		return fmt.Errorf("%w: %w", types.ErrInvalidInput, v)
	}
	return nil
}
