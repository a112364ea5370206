package rejoin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

type RideReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Ride, error)
	FindActive(ctx context.Context, partyID uuid.UUID, role types.UserRole) (*models.Ride, error)
}

type ProfileLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type Registry interface {
	Register(id uuid.UUID, ch ws.Channel) error
}

// Result tells the caller what the client should do with its local ride state.
type Result struct {
	RideID uuid.UUID
	Clear  bool
	View   *models.RideView
}

// Service restores a reconnecting party to its ride. The authoritative ride is
// re-read on every rejoin; events missed while offline are not replayed.
type Service struct {
	rides    RideReader
	profiles ProfileLookup
	registry Registry
	timeout  time.Duration

	l logger.Logger
}

func New(rides RideReader, profiles ProfileLookup, registry Registry, timeout time.Duration, l logger.Logger) *Service {
	return &Service{
		rides:    rides,
		profiles: profiles,
		registry: registry,
		timeout:  timeout,
		l:        l,
	}
}

// Rejoin resolves the claimed ride (or the actor's active ride when none is claimed)
// and answers on ch with either a snapshot or an instruction to clear local state.
func (s *Service) Rejoin(ctx context.Context, actor models.Identity, claimedRideID string, ch ws.Channel) (Result, error) {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionRejoin), actor.ID.String())

	ride, err := s.resolve(ctx, actor, strings.TrimSpace(claimedRideID))
	if err != nil {
		if !errors.Is(err, errStale) {
			return Result{}, wrap.Error(ctx, err)
		}
		res := Result{Clear: true}
		if id, perr := uuid.Parse(claimedRideID); perr == nil {
			res.RideID = id
		}
		s.l.Info(ctx, "rejoin rejected, client told to clear ride state", "claimed_ride_id", claimedRideID)
		s.push(ctx, ch, types.EventRejoinError, models.RejoinError{
			RideID:  claimedRideID,
			Message: "ride is no longer active",
			Clear:   true,
		})
		return res, nil
	}
	ctx = wrap.WithRideID(ctx, ride.ID.String())

	if err := s.registry.Register(actor.ID, ch); err != nil {
		return Result{}, wrap.Error(ctx, fmt.Errorf("failed to register channel: %w", err))
	}

	view := s.view(ctx, ride.Redacted())
	s.push(ctx, ch, types.EventRejoinSuccess, view)
	s.l.Info(ctx, "party rejoined ride", "status", ride.Status.String())

	return Result{RideID: ride.ID, View: view}, nil
}

var errStale = errors.New("stale ride")

func (s *Service) resolve(ctx context.Context, actor models.Identity, claimed string) (*models.Ride, error) {
	if claimed == "" {
		ride, err := s.rides.FindActive(ctx, actor.ID, actor.Role)
		if errors.Is(err, types.ErrNoActiveRide) {
			return nil, errStale
		}
		return ride, err
	}

	id, err := uuid.Parse(claimed)
	if err != nil {
		return nil, errStale
	}
	ride, err := s.rides.Get(ctx, id)
	if errors.Is(err, types.ErrRideNotFound) {
		return nil, errStale
	}
	if err != nil {
		return nil, err
	}
	if ride.Status.IsTerminal() || !ride.IsParty(actor) {
		return nil, errStale
	}
	return ride, nil
}

func (s *Service) view(ctx context.Context, ride *models.Ride) *models.RideView {
	v := &models.RideView{Ride: ride}
	if p, err := s.profiles.Get(ctx, ride.RiderID); err == nil {
		v.Rider = p.Summary()
	} else {
		s.l.Warn(ctx, "rider profile unavailable", "error", err.Error())
	}
	if driverID, ok := ride.AssignedDriver(); ok {
		if p, err := s.profiles.Get(ctx, driverID); err == nil {
			v.Driver = p.Summary()
		} else {
			s.l.Warn(ctx, "driver profile unavailable", "error", err.Error())
		}
	}
	return v
}

func (s *Service) push(ctx context.Context, ch ws.Channel, event types.PushEvent, payload any) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg := models.PushMessage{Event: event, Data: payload, SentAt: time.Now().UTC()}
	if err := ch.Send(ctx, msg); err != nil {
		s.l.Warn(ctx, "failed to answer rejoin", "event", event.String(), "error", err.Error())
	}
}
