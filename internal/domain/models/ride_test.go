package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to types.RideStatus
		want     bool
	}{
		{types.StatusPending, types.StatusAccepted, true},
		{types.StatusPending, types.StatusCancelled, true},
		{types.StatusPending, types.StatusOngoing, false},
		{types.StatusAccepted, types.StatusOngoing, true},
		{types.StatusAccepted, types.StatusCancelled, true},
		{types.StatusAccepted, types.StatusCompleted, false},
		{types.StatusOngoing, types.StatusCompleted, true},
		{types.StatusOngoing, types.StatusCancelled, true},
		{types.StatusCompleted, types.StatusCancelled, false},
		{types.StatusCancelled, types.StatusPending, false},
		{types.StatusCancelled, types.StatusAccepted, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.want, got)
		}
	}
}

func newRide(status types.RideStatus) *Ride {
	now := time.Now()
	r := &Ride{
		ID:           uuid.New(),
		RiderID:      uuid.New(),
		Status:       types.StatusPending,
		VehicleClass: types.ClassCar,
		OTP:          "123456",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	driver := uuid.New()
	switch status {
	case types.StatusAccepted:
		r.DriverID = &driver
		r.AcceptedAt = &now
	case types.StatusOngoing, types.StatusCompleted:
		r.DriverID = &driver
		r.AcceptedAt = &now
		r.OTPVerifiedAt = &now
		if status == types.StatusCompleted {
			r.CompletedAt = &now
		}
	case types.StatusCancelled:
		r.Cancellation = &CancellationDetails{By: types.RoleRider, Reason: DefaultCancellationReason, At: now}
	}
	r.Status = status
	return r
}

func TestValidate(t *testing.T) {
	for _, s := range []types.RideStatus{
		types.StatusPending, types.StatusAccepted, types.StatusOngoing,
		types.StatusCompleted, types.StatusCancelled,
	} {
		if err := newRide(s).Validate(); err != nil {
			t.Fatalf("%s: unexpected error: %v", s, err)
		}
	}

	broken := map[string]*Ride{}

	r := newRide(types.StatusPending)
	id := uuid.New()
	r.DriverID = &id
	broken["pending with driver"] = r

	r = newRide(types.StatusAccepted)
	r.DriverID = nil
	broken["accepted without driver"] = r

	r = newRide(types.StatusAccepted)
	now := time.Now()
	r.OTPVerifiedAt = &now
	broken["accepted but verified"] = r

	r = newRide(types.StatusOngoing)
	r.OTPVerifiedAt = nil
	broken["ongoing unverified"] = r

	r = newRide(types.StatusCancelled)
	r.Cancellation = nil
	broken["cancelled without details"] = r

	r = newRide(types.StatusCompleted)
	r.Cancellation = &CancellationDetails{By: types.RoleDriver}
	broken["completed with cancellation"] = r

	r = newRide(types.StatusCancelled)
	r.DriverID = &id
	broken["cancelled with driver"] = r

	r = newRide(types.StatusCancelled)
	r.OTPVerifiedAt = &now
	broken["cancelled but verified"] = r

	r = newRide(types.StatusPending)
	r.Status = "teleported"
	broken["unknown status"] = r

	for name, r := range broken {
		if err := r.Validate(); !errors.Is(err, types.ErrInvalidStatus) {
			t.Fatalf("%s: expected ErrInvalidStatus, got %v", name, err)
		}
	}
}

func TestCancelReleasesDriver(t *testing.T) {
	for _, from := range []types.RideStatus{types.StatusPending, types.StatusAccepted, types.StatusOngoing} {
		r := newRide(from)
		before := r.Clone()
		now := time.Now()

		r.Cancel(types.RoleDriver, "flat tyre", now)

		if err := CheckUpdate(before, r); err != nil {
			t.Fatalf("%s: cancellation rejected: %v", from, err)
		}
		if r.Status != types.StatusCancelled || r.DriverID != nil || r.OTPVerifiedAt != nil {
			t.Fatalf("%s: cancelled ride still bound: %+v", from, r)
		}
		if !sameID(r.Cancellation.DriverID, before.DriverID) {
			t.Fatalf("%s: cancellation lost the driver", from)
		}
		if (r.Cancellation.OTPVerifiedAt != nil) != (from == types.StatusOngoing) {
			t.Fatalf("%s: cancellation verification record %v", from, r.Cancellation.OTPVerifiedAt)
		}

		driver, ok := r.AssignedDriver()
		if ok != before.HasDriver() || (ok && driver != *before.DriverID) {
			t.Fatalf("%s: assigned driver %s, %v", from, driver, ok)
		}
		if ok && !r.IsParty(Identity{ID: driver, Role: types.RoleDriver}) {
			t.Fatalf("%s: released driver should remain a party", from)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := newRide(types.StatusOngoing)
	r.Messages = []ChatMessage{{By: types.RoleRider, Text: "hi"}}
	r.Rating.Set(types.RoleRider, RatingEntry{Stars: 5})

	c := r.Clone()
	*c.DriverID = uuid.New()
	c.Messages[0].Text = "changed"
	c.Rating.UserToDriver.Stars = 1
	*c.OTPVerifiedAt = time.Time{}

	if *r.DriverID == *c.DriverID {
		t.Fatal("driver id shared between copies")
	}
	if r.Messages[0].Text != "hi" {
		t.Fatal("messages shared between copies")
	}
	if r.Rating.UserToDriver.Stars != 5 {
		t.Fatal("rating shared between copies")
	}
	if r.OTPVerifiedAt.IsZero() {
		t.Fatal("timestamps shared between copies")
	}

	r.Cancel(types.RoleRider, "", time.Now())
	c = r.Clone()
	*c.Cancellation.DriverID = uuid.New()
	*c.Cancellation.OTPVerifiedAt = time.Time{}
	if *r.Cancellation.DriverID == *c.Cancellation.DriverID || r.Cancellation.OTPVerifiedAt.IsZero() {
		t.Fatal("cancellation record shared between copies")
	}

	if got := (&Ride{}).Clone().Messages; got == nil {
		t.Fatal("clone should never carry nil messages")
	}
}

func TestRedacted(t *testing.T) {
	r := newRide(types.StatusPending)
	red := r.Redacted()

	if red.OTP != "" {
		t.Fatal("redacted ride still carries the passcode")
	}
	if r.OTP != "123456" {
		t.Fatal("redaction modified the original")
	}
}

func TestPartyChecks(t *testing.T) {
	r := newRide(types.StatusAccepted)

	if !r.IsParty(Identity{ID: r.RiderID, Role: types.RoleRider}) {
		t.Fatal("rider should be a party")
	}
	if !r.IsParty(Identity{ID: *r.DriverID, Role: types.RoleDriver}) {
		t.Fatal("driver should be a party")
	}
	if r.IsParty(Identity{ID: r.RiderID, Role: types.RoleDriver}) {
		t.Fatal("rider id with driver role should not be a party")
	}
	if r.IsParty(Identity{ID: uuid.New(), Role: types.RoleRider}) {
		t.Fatal("stranger should not be a party")
	}

	other, ok := r.Counterparty(types.RoleRider)
	if !ok || other != *r.DriverID {
		t.Fatal("rider's counterparty should be the driver")
	}
	if _, ok := newRide(types.StatusPending).Counterparty(types.RoleRider); ok {
		t.Fatal("pending ride has no driver counterparty")
	}

	driver := *r.DriverID
	r.Cancel(types.RoleRider, "", time.Now())
	if other, ok := r.Counterparty(types.RoleRider); !ok || other != driver {
		t.Fatal("released driver should stay the rider's counterparty")
	}
	if r.IsDriver(driver) {
		t.Fatal("released driver should no longer be bound")
	}
}

func TestRatingGiven(t *testing.T) {
	var rr RideRating
	if rr.Given(types.RoleRider) != nil || rr.Given(types.RoleDriver) != nil {
		t.Fatal("empty rating should have no entries")
	}

	rr.Set(types.RoleDriver, RatingEntry{Stars: 4})
	if rr.Given(types.RoleDriver) == nil || rr.Given(types.RoleDriver).Stars != 4 {
		t.Fatal("driver rating not stored")
	}
	if rr.UserToDriver != nil {
		t.Fatal("driver rating leaked into the other direction")
	}
}

func TestCalculateMetadata(t *testing.T) {
	m := CalculateMetadata(12, 2, 5)
	if m.LastPage != 3 || m.FirstPage != 1 || m.TotalRecords != 12 || m.CurrentPage != 2 {
		t.Fatalf("unexpected metadata %+v", m)
	}

	empty := CalculateMetadata(0, 1, 10)
	if empty.LastPage != 0 || empty.TotalRecords != 0 || empty.PageSize != 10 {
		t.Fatalf("unexpected empty metadata %+v", empty)
	}

	f := Filters{Page: 3, PageSize: 20}
	if f.Offset() != 40 || f.Limit() != 20 {
		t.Fatalf("unexpected offset/limit %d/%d", f.Offset(), f.Limit())
	}
}

func TestCheckUpdate(t *testing.T) {
	before := newRide(types.StatusAccepted)
	before.Rating = RideRating{}

	ok := before.Clone()
	now := time.Now()
	ok.Status = types.StatusOngoing
	ok.OTPVerifiedAt = &now
	if err := CheckUpdate(before, ok); err != nil {
		t.Fatalf("legal start rejected: %v", err)
	}

	skip := before.Clone()
	skip.Status = types.StatusCompleted
	skip.OTPVerifiedAt = &now
	skip.CompletedAt = &now
	if err := CheckUpdate(before, skip); !errors.Is(err, types.ErrInvalidStatus) {
		t.Fatalf("accepted -> completed should be rejected, got %v", err)
	}

	swapped := before.Clone()
	other := uuid.New()
	swapped.DriverID = &other
	if err := CheckUpdate(before, swapped); !errors.Is(err, types.ErrInvalidStatus) {
		t.Fatalf("driver swap should be rejected, got %v", err)
	}

	otp := before.Clone()
	otp.OTP = "000000"
	if err := CheckUpdate(before, otp); !errors.Is(err, types.ErrInvalidStatus) {
		t.Fatalf("passcode rewrite should be rejected, got %v", err)
	}

	rated := newRide(types.StatusCompleted)
	rated.Rating.Set(types.RoleRider, RatingEntry{Stars: 5, At: now})
	overwrite := rated.Clone()
	overwrite.Rating.Set(types.RoleRider, RatingEntry{Stars: 1, At: now})
	if err := CheckUpdate(rated, overwrite); !errors.Is(err, types.ErrInvalidStatus) {
		t.Fatalf("rating overwrite should be rejected, got %v", err)
	}

	cleared := rated.Clone()
	cleared.Rating.UserToDriver = nil
	if err := CheckUpdate(rated, cleared); !errors.Is(err, types.ErrInvalidStatus) {
		t.Fatalf("rating removal should be rejected, got %v", err)
	}

	dropped := before.Clone()
	dropped.DriverID = nil
	if err := CheckUpdate(before, dropped); !errors.Is(err, types.ErrInvalidStatus) {
		t.Fatalf("driver release without cancellation should be rejected, got %v", err)
	}

	forged := before.Clone()
	forged.Cancel(types.RoleRider, "", now)
	forged.Cancellation.DriverID = &other
	if err := CheckUpdate(before, forged); !errors.Is(err, types.ErrInvalidStatus) {
		t.Fatalf("cancellation naming another driver should be rejected, got %v", err)
	}

	kept := before.Clone()
	kept.Status = types.StatusCancelled
	kept.Cancellation = &CancellationDetails{By: types.RoleRider, DriverID: before.DriverID, At: now}
	if err := CheckUpdate(before, kept); !errors.Is(err, types.ErrInvalidStatus) {
		t.Fatalf("cancelled ride keeping its driver should be rejected, got %v", err)
	}
}
