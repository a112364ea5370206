package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

type Config struct {
	RadiusKm float64
	Timeout  time.Duration
	Service  string
}

/*
Engine offers new rides to nearby available drivers and tells the drivers holding
an offer when it is gone. A dispatch is a single best-effort broadcast: there is no
retry and no radius growth, so a ride nobody was offered stays pending.
*/
type Engine struct {
	rides    RideReader
	locator  Locator
	registry Registry
	notifier Notifier
	tracker  OfferTracker
	cfg      Config

	wg sync.WaitGroup
	l  logger.Logger
}

func New(rides RideReader, locator Locator, registry Registry, notifier Notifier, tracker OfferTracker, cfg Config, l logger.Logger) *Engine {
	return &Engine{
		rides:    rides,
		locator:  locator,
		registry: registry,
		notifier: notifier,
		tracker:  tracker,
		cfg:      cfg,
		l:        l,
	}
}

// Dispatch starts the broadcast for a stored ride and returns immediately.
func (e *Engine) Dispatch(ctx context.Context, ride *models.Ride) {
	ride = ride.Redacted()
	ctx = wrap.WithRideID(wrap.WithAction(context.WithoutCancel(ctx), types.ActionDispatch), ride.ID.String())

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()

		e.run(ctx, ride)
	}()
}

func (e *Engine) run(ctx context.Context, ride *models.Ride) {
	candidates, err := e.locator.FindCandidates(ctx, ride.Pickup.Latitude, ride.Pickup.Longitude, e.cfg.RadiusKm, ride.VehicleClass)
	if err != nil {
		metrics.RecordDispatchError(e.cfg.Service)
		e.l.Error(ctx, "failed to find candidates", err)
		return
	}

	targets := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		if !c.Available() {
			continue
		}
		if _, ok := e.registry.Lookup(c.DriverID); !ok {
			continue
		}
		targets = append(targets, c.DriverID)
	}

	if len(targets) == 0 {
		metrics.RecordDispatch(e.cfg.Service, ride.VehicleClass.String(), 0)
		e.l.Info(ctx, "no available drivers nearby, ride stays pending", "candidates", len(candidates))
		return
	}

	// the candidate search can outlive the ride's pending state
	cur, err := e.rides.Get(ctx, ride.ID)
	if err != nil {
		metrics.RecordDispatchError(e.cfg.Service)
		e.l.Error(ctx, "failed to re-read ride before broadcast", err)
		return
	}
	if cur.Status != types.StatusPending {
		e.l.Info(ctx, "ride left pending before broadcast", "status", cur.Status.String())
		return
	}

	// Record before pushing so an accept racing the broadcast still sees every
	// driver that may hold the offer.
	if err := e.tracker.Record(ctx, ride.ID, targets); err != nil {
		e.l.Error(ctx, "failed to record offers", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered []uuid.UUID
	)
	for _, id := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()

			out := e.notifier.Send(ctx, id, types.EventRideOffer, ride)
			if out == ws.Delivered {
				mu.Lock()
				delivered = append(delivered, id)
				mu.Unlock()
				return
			}

			e.l.Debug(ctx, "offer not delivered", "driver_id", id.String(), "outcome", string(out))
			if _, err := e.tracker.Take(ctx, ride.ID, id); err != nil {
				e.l.Warn(ctx, "failed to drop undelivered offer", "driver_id", id.String(), "error", err.Error())
			}
		}()
	}
	wg.Wait()

	metrics.RecordDispatch(e.cfg.Service, ride.VehicleClass.String(), len(delivered))
	e.l.Info(ctx, "ride dispatched", "candidates", len(candidates), "targets", len(targets), "offered", len(delivered))

	e.retractIfGone(ctx, ride.ID, delivered)
}

// retractIfGone re-reads the ride after the broadcast. If it was accepted or
// cancelled meanwhile, a resolve may have run before some offers landed, so every
// delivered offer other than the bound driver's is withdrawn again. A driver can
// get the same withdrawal twice; the last push is always the withdrawal.
func (e *Engine) retractIfGone(ctx context.Context, rideID uuid.UUID, delivered []uuid.UUID) {
	if len(delivered) == 0 {
		return
	}
	cur, err := e.rides.Get(ctx, rideID)
	if err != nil {
		e.l.Error(ctx, "failed to re-read ride after broadcast", err)
		return
	}
	if cur.Status == types.StatusPending {
		return
	}
	if _, err := e.tracker.Drain(ctx, rideID); err != nil {
		e.l.Warn(ctx, "failed to drain offers", "error", err.Error())
	}

	event, payload := withdrawal(cur)
	driver, _ := cur.AssignedDriver()
	for _, id := range delivered {
		if id == driver {
			continue
		}
		e.notifier.Notify(ctx, id, event, payload)
	}
	e.l.Info(ctx, "ride left pending during broadcast, offers withdrawn", "status", cur.Status.String(), "offers", len(delivered))
}

func withdrawal(ride *models.Ride) (types.PushEvent, any) {
	if ride.Status == types.StatusCancelled && ride.Cancellation != nil {
		return types.EventRideCancelled, models.RideCancelled{Ride: ride.Redacted(), CancelledBy: ride.Cancellation.By}
	}
	return types.EventRideTaken, models.RideTaken{RideID: ride.ID.String(), Message: "ride is no longer available"}
}

// ResolveTaken tells every other driver holding an offer that winner took the ride.
func (e *Engine) ResolveTaken(ctx context.Context, rideID, winner uuid.UUID) {
	ids, err := e.tracker.Drain(ctx, rideID)
	if err != nil {
		e.l.Error(ctx, "failed to drain offers", err, "ride_id", rideID.String())
		return
	}

	payload := models.RideTaken{RideID: rideID.String(), Message: "ride is no longer available"}
	for _, id := range ids {
		if id == winner {
			continue
		}
		e.notifier.Notify(ctx, id, types.EventRideTaken, payload)
	}
}

// ResolveLost tells a driver who lost the accept race, unless ResolveTaken already did.
func (e *Engine) ResolveLost(ctx context.Context, rideID, loser uuid.UUID) {
	held, err := e.tracker.Take(ctx, rideID, loser)
	if err != nil {
		e.l.Error(ctx, "failed to take offer", err, "ride_id", rideID.String())
		return
	}
	if !held {
		return
	}
	e.notifier.Notify(ctx, loser, types.EventRideTaken, models.RideTaken{RideID: rideID.String(), Message: "ride is no longer available"})
}

// Withdraw tells every driver holding an offer that the ride was cancelled.
func (e *Engine) Withdraw(ctx context.Context, ride *models.Ride, by types.UserRole) {
	ids, err := e.tracker.Drain(ctx, ride.ID)
	if err != nil {
		e.l.Error(ctx, "failed to drain offers", err, "ride_id", ride.ID.String())
		return
	}

	payload := models.RideCancelled{Ride: ride.Redacted(), CancelledBy: by}
	for _, id := range ids {
		e.notifier.Notify(ctx, id, types.EventRideCancelled, payload)
	}
}

// Wait blocks until in-flight dispatches have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}
