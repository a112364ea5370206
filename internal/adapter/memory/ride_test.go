package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

func pendingRide(riderID uuid.UUID, createdAt time.Time) *models.Ride {
	return &models.Ride{
		ID:           uuid.New(),
		RiderID:      riderID,
		Status:       types.StatusPending,
		VehicleClass: types.ClassCar,
		OTP:          "424242",
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
		Messages:     []models.ChatMessage{},
	}
}

func accept(driverID uuid.UUID) func(*models.Ride) error {
	return func(r *models.Ride) error {
		now := time.Now()
		r.Status = types.StatusAccepted
		r.DriverID = &driverID
		r.AcceptedAt = &now
		return nil
	}
}

func TestConditionalUpdateConflict(t *testing.T) {
	ctx := context.Background()
	s := NewRideStore()
	r := pendingRide(uuid.New(), time.Now())
	if err := s.Create(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.ConditionalUpdate(ctx, r.ID, types.StatusPending, accept(uuid.New())); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	_, err := s.ConditionalUpdate(ctx, r.ID, types.StatusPending, accept(uuid.New()))
	if !errors.Is(err, types.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if _, err := s.ConditionalUpdate(ctx, uuid.New(), types.StatusPending, accept(uuid.New())); !errors.Is(err, types.ErrRideNotFound) {
		t.Fatalf("expected ErrRideNotFound, got %v", err)
	}
}

func TestConditionalUpdateRejectsBadMutation(t *testing.T) {
	ctx := context.Background()
	s := NewRideStore()
	r := pendingRide(uuid.New(), time.Now())
	_ = s.Create(ctx, r)

	boom := errors.New("boom")
	_, err := s.ConditionalUpdate(ctx, r.ID, types.StatusPending, func(r *models.Ride) error {
		r.Status = types.StatusCancelled
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutation error, got %v", err)
	}

	// skipping a state is refused by the store
	_, err = s.ConditionalUpdate(ctx, r.ID, types.StatusPending, func(r *models.Ride) error {
		r.Status = types.StatusCompleted
		return nil
	})
	if !errors.Is(err, types.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	got, _ := s.Get(ctx, r.ID)
	if got.Status != types.StatusPending {
		t.Fatalf("failed mutations must not be written, status %s", got.Status)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewRideStore()
	r := pendingRide(uuid.New(), time.Now())
	_ = s.Create(ctx, r)

	got, _ := s.Get(ctx, r.ID)
	got.Status = types.StatusCompleted
	got.Messages = append(got.Messages, models.ChatMessage{Text: "sneaky"})

	again, _ := s.Get(ctx, r.ID)
	if again.Status != types.StatusPending || len(again.Messages) != 0 {
		t.Fatal("caller mutated stored ride")
	}
}

func TestConcurrentAcceptExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewRideStore()
	r := pendingRide(uuid.New(), time.Now())
	_ = s.Create(ctx, r)

	const drivers = 32
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make(chan error, drivers)
	)

	for range drivers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.ConditionalUpdate(ctx, r.ID, types.StatusPending, accept(uuid.New()))
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		if !errors.Is(err, types.ErrConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}

	events, _ := s.Events(ctx, r.ID)
	if len(events) != 2 || events[1].Event != types.AuditDriverMatched {
		t.Fatalf("unexpected audit trail %+v", events)
	}
}

func TestQueryAndFindActive(t *testing.T) {
	ctx := context.Background()
	s := NewRideStore()
	rider := uuid.New()
	base := time.Now().Add(-time.Hour)

	var ids []uuid.UUID
	for i := range 5 {
		r := pendingRide(rider, base.Add(time.Duration(i)*time.Minute))
		_ = s.Create(ctx, r)
		ids = append(ids, r.ID)
	}
	_ = s.Create(ctx, pendingRide(uuid.New(), time.Now()))

	// cancel the oldest two
	for _, id := range ids[:2] {
		_, err := s.ConditionalUpdate(ctx, id, types.StatusPending, func(r *models.Ride) error {
			r.Cancel(types.RoleRider, models.DefaultCancellationReason, time.Now())
			return nil
		})
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
	}

	page, meta, err := s.Query(ctx, models.RideFilter{
		PartyID: rider,
		Role:    types.RoleRider,
		Filters: models.Filters{Page: 1, PageSize: 2},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if meta.TotalRecords != 5 || meta.LastPage != 3 {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if len(page) != 2 || page[0].ID != ids[4] || page[1].ID != ids[3] {
		t.Fatal("expected newest rides first")
	}

	cancelled, meta, _ := s.Query(ctx, models.RideFilter{
		PartyID: rider,
		Role:    types.RoleRider,
		Status:  types.StatusCancelled,
		Filters: models.Filters{Page: 1, PageSize: 10},
	})
	if len(cancelled) != 2 || meta.TotalRecords != 2 {
		t.Fatalf("expected 2 cancelled rides, got %d", len(cancelled))
	}

	active, err := s.FindActive(ctx, rider, types.RoleRider)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active.ID != ids[4] {
		t.Fatal("expected the newest active ride")
	}

	if _, err := s.FindActive(ctx, uuid.New(), types.RoleDriver); !errors.Is(err, types.ErrNoActiveRide) {
		t.Fatalf("expected ErrNoActiveRide, got %v", err)
	}
}

func TestCancelledRideStaysInDriverHistory(t *testing.T) {
	ctx := context.Background()
	s := NewRideStore()
	driver := uuid.New()

	r := pendingRide(uuid.New(), time.Now())
	_ = s.Create(ctx, r)
	if _, err := s.ConditionalUpdate(ctx, r.ID, types.StatusPending, accept(driver)); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := s.ConditionalUpdate(ctx, r.ID, types.StatusAccepted, func(r *models.Ride) error {
		r.Cancel(types.RoleRider, "changed plans", time.Now())
		return nil
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := s.FindActive(ctx, driver, types.RoleDriver); !errors.Is(err, types.ErrNoActiveRide) {
		t.Fatalf("expected ErrNoActiveRide, got %v", err)
	}
	page, _, err := s.Query(ctx, models.RideFilter{PartyID: driver, Role: types.RoleDriver, Filters: models.Filters{Page: 1, PageSize: 10}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(page) != 1 || page[0].ID != r.ID || page[0].HasDriver() {
		t.Fatalf("unexpected driver history %+v", page)
	}
}

func TestRatingStats(t *testing.T) {
	ctx := context.Background()
	s := NewRideStore()
	driver := uuid.New()

	for _, stars := range []int{5, 4, 3} {
		r := pendingRide(uuid.New(), time.Now())
		_ = s.Create(ctx, r)
		steps := []struct {
			from types.RideStatus
			fn   func(*models.Ride) error
		}{
			{types.StatusPending, accept(driver)},
			{types.StatusAccepted, func(r *models.Ride) error {
				now := time.Now()
				r.Status = types.StatusOngoing
				r.OTPVerifiedAt = &now
				return nil
			}},
			{types.StatusOngoing, func(r *models.Ride) error {
				now := time.Now()
				r.Status = types.StatusCompleted
				r.CompletedAt = &now
				return nil
			}},
			{types.StatusCompleted, func(r *models.Ride) error {
				r.Rating.Set(types.RoleRider, models.RatingEntry{Stars: stars, At: time.Now()})
				return nil
			}},
		}
		for _, st := range steps {
			if _, err := s.ConditionalUpdate(ctx, r.ID, st.from, st.fn); err != nil {
				t.Fatalf("step from %s: %v", st.from, err)
			}
		}
	}

	avg, count, err := s.RatingStats(ctx, driver, types.RoleDriver)
	if err != nil {
		t.Fatalf("rating stats: %v", err)
	}
	if count != 3 || avg != 4 {
		t.Fatalf("expected 3 ratings averaging 4, got %d / %v", count, avg)
	}
}
