package ride

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
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

const (
	maxMessageLength = 1000
	maxCommentLength = 500
)

/*
RideService drives a ride through pending -> accepted -> ongoing -> completed, or to
cancelled from any non-terminal status. Every transition goes through the store's
conditional update, so two concurrent transitions on one ride cannot both win.

Pushes, broker events and metrics follow a successful transition and never fail it.
*/
type RideService struct {
	store      RideStore
	profiles   ProfileStore
	trm        trm.TxManager
	dispatcher Dispatcher
	notifier   Notifier
	publisher  EventPublisher // nil disables the status stream
	geocoder   Geocoder
	estimator  Estimator
	service    string

	l logger.Logger
}

func NewRideService(
	store RideStore,
	profiles ProfileStore,
	trm trm.TxManager,
	dispatcher Dispatcher,
	notifier Notifier,
	publisher EventPublisher,
	geocoder Geocoder,
	estimator Estimator,
	service string,
	l logger.Logger,
) *RideService {
	return &RideService{
		store:      store,
		profiles:   profiles,
		trm:        trm,
		dispatcher: dispatcher,
		notifier:   notifier,
		publisher:  publisher,
		geocoder:   geocoder,
		estimator:  estimator,
		service:    service,
		l:          l,
	}
}

// Create stores a pending ride for the rider and starts dispatching it. The returned
// ride carries the passcode; this is the only read that does.
func (s *RideService) Create(ctx context.Context, riderID uuid.UUID, req models.CreateRideRequest) (*models.Ride, error) {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionCreateRide), riderID.String())

	v := validator.New()
	v.Check(req.VehicleClass.Valid(), "vehicle_class", "must be one of car, moto, auto")
	pickup := s.resolve(ctx, v, "pickup", req.Pickup)
	destination := s.resolve(ctx, v, "destination", req.Destination)
	if v.Valid() {
		v.Check(pickup.Latitude != destination.Latitude || pickup.Longitude != destination.Longitude,
			"destination", "must differ from pickup")
	}
	if !v.Valid() {
		return nil, invalid(v)
	}

	otp, err := generateOTP()
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	est := s.estimator.Estimate(pickup, destination, req.VehicleClass)
	now := time.Now().UTC()
	ride := &models.Ride{
		ID:           uuid.New(),
		RiderID:      riderID,
		Status:       types.StatusPending,
		Pickup:       pickup,
		Destination:  destination,
		VehicleClass: req.VehicleClass,
		Fare:         est.Fare,
		DistanceKm:   est.DistanceKm,
		DurationMin:  est.DurationMin,
		OTP:          otp,
		CreatedAt:    now,
		UpdatedAt:    now,
		Messages:     []models.ChatMessage{},
	}
	ctx = wrap.WithRideID(ctx, ride.ID.String())

	if err := s.store.Create(ctx, ride); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to create ride: %w", err))
	}

	s.l.Info(ctx, "ride created", "vehicle_class", ride.VehicleClass.String(), "fare", ride.Fare, "distance_km", ride.DistanceKm)
	s.transitioned(ctx, ride, "")
	s.dispatcher.Dispatch(ctx, ride)

	return ride, nil
}

// resolve fills in coordinates from the address, or the address from coordinates.
func (s *RideService) resolve(ctx context.Context, v *validator.Validator, field string, loc models.Location) models.Location {
	loc.Address = strings.TrimSpace(loc.Address)

	if loc.HasCoordinates() {
		if !models.ValidCoordinates(loc.Latitude, loc.Longitude) {
			v.AddError(field, "coordinates out of range")
			return loc
		}
		if loc.Address == "" {
			addr, err := s.geocoder.Reverse(ctx, loc.Latitude, loc.Longitude)
			if err != nil {
				s.l.Debug(ctx, "reverse geocoding skipped", "field", field, "error", err.Error())
			} else {
				loc.Address = addr
			}
		}
		return loc
	}

	if loc.Address == "" {
		v.AddError(field, "must contain coordinates or an address")
		return loc
	}

	found, err := s.geocoder.Geocode(ctx, loc.Address)
	if err != nil {
		if !errors.Is(err, types.ErrLocationNotFound) && !errors.Is(err, types.ErrGeocoderDisabled) {
			s.l.Warn(wrap.WithAction(ctx, types.ActionExternalServiceFailed), "geocoding failed", "field", field, "error", err.Error())
		}
		v.AddError(field, "address could not be resolved")
		return loc
	}
	found.Address = loc.Address
	return found
}

// Accept binds the driver to a pending ride. Exactly one of several concurrent
// accepts succeeds; the others get ErrConflict.
func (s *RideService) Accept(ctx context.Context, rideID, driverID uuid.UUID) (*models.RideView, error) {
	ctx = wrap.WithRideID(wrap.WithUserID(wrap.WithAction(ctx, types.ActionAcceptRide), driverID.String()), rideID.String())

	ride, err := s.store.ConditionalUpdate(ctx, rideID, types.StatusPending, func(r *models.Ride) error {
		now := time.Now().UTC()
		r.Status = types.StatusAccepted
		r.DriverID = &driverID
		r.AcceptedAt = &now
		return nil
	})
	switch {
	case errors.Is(err, types.ErrRideNotFound):
		return nil, wrap.Error(ctx, types.ErrNotFoundOrWrongState)
	case errors.Is(err, types.ErrConflict):
		return nil, s.acceptLost(ctx, rideID, driverID)
	case err != nil:
		return nil, wrap.Error(ctx, fmt.Errorf("failed to accept ride: %w", err))
	}

	s.l.Info(ctx, "ride accepted")
	s.transitioned(ctx, ride, types.StatusPending)
	s.dispatcher.ResolveTaken(ctx, ride.ID, driverID)

	var driver *models.PartySummary
	if p, err := s.profiles.Get(ctx, driverID); err != nil {
		s.l.Warn(ctx, "driver profile unavailable", "error", err.Error())
	} else {
		driver = p.Summary()
	}
	// the rider needs the passcode to hand it to the driver
	s.notifier.Notify(ctx, ride.RiderID, types.EventRideAccepted, models.RideAccepted{Ride: ride, Driver: driver})

	return s.view(ctx, ride.Redacted()), nil
}

// acceptLost tells a losing accept apart from one that was never possible.
func (s *RideService) acceptLost(ctx context.Context, rideID, driverID uuid.UUID) error {
	cur, err := s.store.Get(ctx, rideID)
	if err != nil {
		return wrap.Error(ctx, types.ErrNotFoundOrWrongState)
	}
	if cur.Status == types.StatusCancelled || !cur.HasDriver() || cur.IsDriver(driverID) {
		return wrap.Error(ctx, types.ErrNotFoundOrWrongState)
	}

	metrics.RecordConflict(s.service, "accept")
	s.l.Info(ctx, "ride already taken by another driver")
	s.dispatcher.ResolveLost(ctx, rideID, driverID)
	return wrap.Error(ctx, types.ErrConflict)
}

// Start verifies the rider's passcode and moves the ride to ongoing. Each wrong code
// is counted; once the count reaches the limit the ride can no longer be started.
func (s *RideService) Start(ctx context.Context, rideID, driverID uuid.UUID, otp string) (*models.RideView, error) {
	ctx = wrap.WithRideID(wrap.WithUserID(wrap.WithAction(ctx, types.ActionStartRide), driverID.String()), rideID.String())

	var mismatch bool
	ride, err := s.store.ConditionalUpdate(ctx, rideID, types.StatusAccepted, func(r *models.Ride) error {
		if !r.IsDriver(driverID) {
			return types.ErrNotFoundOrWrongState
		}
		if r.OTPAttempts >= models.MaxOTPAttempts {
			return types.ErrTooManyOTPAttempts
		}
		if !otpMatches(r.OTP, otp) {
			r.OTPAttempts++
			mismatch = true
			return nil
		}
		now := time.Now().UTC()
		r.Status = types.StatusOngoing
		r.OTPVerifiedAt = &now
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrTooManyOTPAttempts) {
			metrics.RecordOTPFailure(s.service, "locked")
			return nil, wrap.Error(ctx, err)
		}
		return nil, s.wrongState(ctx, err)
	}

	if mismatch {
		s.l.Warn(ctx, "incorrect otp", "attempts", ride.OTPAttempts)
		if ride.OTPAttempts >= models.MaxOTPAttempts {
			metrics.RecordOTPFailure(s.service, "locked")
			return nil, wrap.Error(ctx, types.ErrTooManyOTPAttempts)
		}
		metrics.RecordOTPFailure(s.service, "mismatch")
		return nil, wrap.Error(ctx, types.ErrInvalidOTP)
	}

	s.l.Info(ctx, "ride started")
	s.transitioned(ctx, ride, types.StatusAccepted)

	ride = ride.Redacted()
	s.notifier.Notify(ctx, ride.RiderID, types.EventRideStarted, ride)
	return s.view(ctx, ride), nil
}

func (s *RideService) Complete(ctx context.Context, rideID, driverID uuid.UUID) (*models.RideView, error) {
	ctx = wrap.WithRideID(wrap.WithUserID(wrap.WithAction(ctx, types.ActionCompleteRide), driverID.String()), rideID.String())

	ride, err := s.store.ConditionalUpdate(ctx, rideID, types.StatusOngoing, func(r *models.Ride) error {
		if !r.IsDriver(driverID) {
			return types.ErrNotFoundOrWrongState
		}
		now := time.Now().UTC()
		r.Status = types.StatusCompleted
		r.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, s.wrongState(ctx, err)
	}

	s.l.Info(ctx, "ride completed", "fare", ride.Fare)
	s.transitioned(ctx, ride, types.StatusOngoing)

	ride = ride.Redacted()
	s.notifier.Notify(ctx, ride.RiderID, types.EventRideCompleted, ride)
	return s.view(ctx, ride), nil
}

// Cancel ends a non-terminal ride on behalf of one of its parties and releases the
// driver. A non-party gets ErrUnauthorized. If the status changes between the read
// and the write the cancel fails with ErrConflict.
func (s *RideService) Cancel(ctx context.Context, rideID uuid.UUID, actor models.Identity, reason string) (*models.RideView, error) {
	ctx = wrap.WithRideID(wrap.WithUserID(wrap.WithAction(ctx, types.ActionCancelRide), actor.ID.String()), rideID.String())

	cur, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, s.wrongState(ctx, err)
	}
	if !cur.IsParty(actor) {
		return nil, wrap.Error(ctx, types.ErrUnauthorized)
	}
	if cur.Status.IsTerminal() {
		return nil, wrap.Error(ctx, types.ErrNotFoundOrWrongState)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = models.DefaultCancellationReason
	}
	if !validator.MaxChars(reason, maxCommentLength) {
		v := validator.New()
		v.AddError("reason", fmt.Sprintf("must not be more than %d characters", maxCommentLength))
		return nil, invalid(v)
	}

	prev := cur.Status
	ride, err := s.store.ConditionalUpdate(ctx, rideID, prev, func(r *models.Ride) error {
		r.Cancel(actor.Role, reason, time.Now().UTC())
		return nil
	})
	switch {
	case errors.Is(err, types.ErrConflict):
		metrics.RecordConflict(s.service, "cancel")
		s.l.Info(ctx, "ride changed while cancelling", "expected_status", prev.String())
		return nil, wrap.Error(ctx, types.ErrConflict)
	case err != nil:
		return nil, s.wrongState(ctx, err)
	}

	s.l.Info(ctx, "ride cancelled", "by", actor.Role.String(), "prev_status", prev.String())
	s.transitioned(ctx, ride, prev)

	ride = ride.Redacted()
	if prev == types.StatusPending {
		s.dispatcher.Withdraw(ctx, ride, actor.Role)
	}
	if other, ok := ride.Counterparty(actor.Role); ok {
		s.notifier.Notify(ctx, other, types.EventRideCancelled, models.RideCancelled{Ride: ride, CancelledBy: actor.Role})
	}
	return s.view(ctx, ride), nil
}

// Rate records the actor's rating of the other party and refreshes that party's
// aggregate from every rating they have received.
func (s *RideService) Rate(ctx context.Context, rideID uuid.UUID, actor models.Identity, stars int, comment string) (*models.RideView, error) {
	ctx = wrap.WithRideID(wrap.WithUserID(wrap.WithAction(ctx, types.ActionRateRide), actor.ID.String()), rideID.String())

	comment = strings.TrimSpace(comment)
	v := validator.New()
	v.Check(stars >= 1 && stars <= 5, "stars", "must be between 1 and 5")
	v.Check(validator.MaxChars(comment, maxCommentLength), "comment", fmt.Sprintf("must not be more than %d characters", maxCommentLength))
	if !v.Valid() {
		return nil, invalid(v)
	}

	cur, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, s.wrongState(ctx, err)
	}
	if !cur.IsParty(actor) {
		return nil, wrap.Error(ctx, types.ErrUnauthorized)
	}
	if cur.Status != types.StatusCompleted {
		return nil, wrap.Error(ctx, types.ErrNotFoundOrWrongState)
	}
	if cur.Rating.Given(actor.Role) != nil {
		return nil, wrap.Error(ctx, types.ErrAlreadyRated)
	}

	ride, err := s.store.ConditionalUpdate(ctx, rideID, types.StatusCompleted, func(r *models.Ride) error {
		if r.Rating.Given(actor.Role) != nil {
			return types.ErrAlreadyRated
		}
		r.Rating.Set(actor.Role, models.RatingEntry{
			Stars:   stars,
			Comment: comment,
			At:      time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrAlreadyRated) {
			return nil, wrap.Error(ctx, err)
		}
		return nil, s.wrongState(ctx, err)
	}

	rated, _ := ride.Counterparty(actor.Role)
	s.refreshRating(ctx, rated, actor.Role.Counterpart())

	s.l.Info(ctx, "ride rated", "stars", stars, "rated_id", rated.String())
	return s.view(ctx, ride.Redacted()), nil
}

// refreshRating recomputes the aggregate while holding the party's profile, so a
// concurrent refresh cannot overwrite it with stale stats.
func (s *RideService) refreshRating(ctx context.Context, partyID uuid.UUID, role types.UserRole) {
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		if err := s.profiles.LockRating(ctx, partyID); err != nil {
			return fmt.Errorf("lock profile: %w", err)
		}
		avg, count, err := s.store.RatingStats(ctx, partyID, role)
		if err != nil {
			return fmt.Errorf("compute rating: %w", err)
		}
		if err := s.profiles.UpdateRating(ctx, partyID, models.RatingAggregate{Average: avg, Count: count}); err != nil {
			return fmt.Errorf("store rating: %w", err)
		}
		return nil
	})
	if err != nil {
		s.l.Error(ctx, "failed to refresh rating", err, "party_id", partyID.String())
	}
}

// PostMessage appends a chat message to an accepted or ongoing ride and pushes it to
// the other party.
func (s *RideService) PostMessage(ctx context.Context, rideID uuid.UUID, actor models.Identity, text string) (*models.ChatMessage, error) {
	ctx = wrap.WithRideID(wrap.WithUserID(wrap.WithAction(ctx, types.ActionPostMessage), actor.ID.String()), rideID.String())

	text = strings.TrimSpace(text)
	v := validator.New()
	v.Check(validator.NotBlank(text), "text", "must be provided")
	v.Check(validator.MaxChars(text, maxMessageLength), "text", fmt.Sprintf("must not be more than %d characters", maxMessageLength))
	if !v.Valid() {
		return nil, invalid(v)
	}

	cur, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, s.wrongState(ctx, err)
	}
	if !cur.IsParty(actor) {
		return nil, wrap.Error(ctx, types.ErrUnauthorized)
	}
	if cur.Status != types.StatusAccepted && cur.Status != types.StatusOngoing {
		return nil, wrap.Error(ctx, types.ErrNotFoundOrWrongState)
	}

	msg := models.ChatMessage{By: actor.Role, Text: text, At: time.Now().UTC()}
	ride, err := s.store.ConditionalUpdate(ctx, rideID, cur.Status, func(r *models.Ride) error {
		r.Messages = append(r.Messages, msg)
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			return nil, wrap.Error(ctx, err)
		}
		return nil, s.wrongState(ctx, err)
	}

	if other, ok := ride.Counterparty(actor.Role); ok {
		s.notifier.Notify(ctx, other, types.EventChatMessage, models.ChatPush{RideID: ride.ID.String(), Message: msg})
	}
	s.l.Debug(ctx, "message posted", "messages", len(ride.Messages))
	return &msg, nil
}

// GetActive returns the actor's newest pending, accepted or ongoing ride.
func (s *RideService) GetActive(ctx context.Context, actor models.Identity) (*models.RideView, error) {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionActiveRide), actor.ID.String())

	ride, err := s.store.FindActive(ctx, actor.ID, actor.Role)
	if err != nil {
		if errors.Is(err, types.ErrNoActiveRide) {
			return nil, wrap.Error(ctx, err)
		}
		return nil, wrap.Error(ctx, fmt.Errorf("failed to find active ride: %w", err))
	}
	return s.view(ctx, ride.Redacted()), nil
}

func (s *RideService) Get(ctx context.Context, rideID uuid.UUID, actor models.Identity) (*models.RideView, error) {
	ctx = wrap.WithRideID(wrap.WithUserID(wrap.WithAction(ctx, types.ActionGetRide), actor.ID.String()), rideID.String())

	ride, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, s.wrongState(ctx, err)
	}
	if !ride.IsParty(actor) {
		return nil, wrap.Error(ctx, types.ErrNotFoundOrWrongState)
	}
	return s.view(ctx, ride.Redacted()), nil
}

// History lists the actor's rides, newest first.
func (s *RideService) History(ctx context.Context, actor models.Identity, status types.RideStatus, filters models.Filters) ([]*models.Ride, models.Metadata, error) {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionRideHistory), actor.ID.String())

	f := models.RideFilter{
		PartyID: actor.ID,
		Role:    actor.Role,
		Status:  status,
		Filters: filters,
	}
	v := validator.New()
	if f.Validate(v); !v.Valid() {
		return nil, models.Metadata{}, invalid(v)
	}

	rides, meta, err := s.store.Query(ctx, f)
	if err != nil {
		return nil, models.Metadata{}, wrap.Error(ctx, fmt.Errorf("failed to query rides: %w", err))
	}
	for i, r := range rides {
		rides[i] = r.Redacted()
	}
	return rides, meta, nil
}

// transitioned publishes and counts a status change. Failures are only logged.
func (s *RideService) transitioned(ctx context.Context, ride *models.Ride, prev types.RideStatus) {
	metrics.RecordTransition(s.service, prev.String(), ride.Status.String())

	if s.publisher == nil {
		return
	}
	event := models.NewRideStatusEvent(ride, prev, wrap.RequestID(ctx))
	if err := s.publisher.PublishRideStatus(ctx, event); err != nil {
		s.l.Error(wrap.ErrorCtx(ctx, err), "failed to publish ride status", err, "status", ride.Status.String())
	}
}

// view attaches party summaries. A failed lookup leaves the summary empty.
func (s *RideService) view(ctx context.Context, ride *models.Ride) *models.RideView {
	v := &models.RideView{Ride: ride}

	if p, err := s.profiles.Get(ctx, ride.RiderID); err != nil {
		s.l.Warn(ctx, "rider profile unavailable", "rider_id", ride.RiderID.String(), "error", err.Error())
	} else {
		v.Rider = p.Summary()
	}

	if driverID, ok := ride.AssignedDriver(); ok {
		if p, err := s.profiles.Get(ctx, driverID); err != nil {
			s.l.Warn(ctx, "driver profile unavailable", "driver_id", driverID.String(), "error", err.Error())
		} else {
			v.Driver = p.Summary()
		}
	}
	return v
}

// wrongState folds a missing ride, a foreign ride and a status mismatch into one error.
func (s *RideService) wrongState(ctx context.Context, err error) error {
	if errors.Is(err, types.ErrRideNotFound) || errors.Is(err, types.ErrConflict) || errors.Is(err, types.ErrNotFoundOrWrongState) {
		return wrap.Error(ctx, types.ErrNotFoundOrWrongState)
	}
	return wrap.Error(ctx, fmt.Errorf("ride store: %w", err))
}

func invalid(v *validator.Validator) error {
	return fmt.Errorf("%w: %w", types.ErrInvalidInput, v)
}
