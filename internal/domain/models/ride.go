package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// MaxOTPAttempts is the number of wrong passcodes after which a ride can no longer be started.
const MaxOTPAttempts = 5

// DefaultCancellationReason is stored when the actor gives no reason.
const DefaultCancellationReason = "No reason provided"

var allowedTransitions = map[types.RideStatus][]types.RideStatus{
	types.StatusPending:  {types.StatusAccepted, types.StatusCancelled},
	types.StatusAccepted: {types.StatusOngoing, types.StatusCancelled},
	types.StatusOngoing:  {types.StatusCompleted, types.StatusCancelled},
}

// CanTransition reports whether a ride may move from one status to another.
func CanTransition(from, to types.RideStatus) bool {
	return slices.Contains(allowedTransitions[from], to)
}

type Ride struct {
	ID       uuid.UUID        `json:"id"`
	RiderID  uuid.UUID        `json:"rider_id"`
	DriverID *uuid.UUID       `json:"driver_id,omitempty"`
	Status   types.RideStatus `json:"status"`

	Pickup       Location           `json:"pickup"`
	Destination  Location           `json:"destination"`
	VehicleClass types.VehicleClass `json:"vehicle_class"`
	Fare         float64            `json:"fare"`
	DistanceKm   float64            `json:"distance_km"`
	DurationMin  int                `json:"duration_min"`

	OTP         string `json:"otp,omitempty"`
	OTPAttempts int    `json:"-"`

	CreatedAt     time.Time            `json:"created_at"`
	AcceptedAt    *time.Time           `json:"accepted_at,omitempty"`
	OTPVerifiedAt *time.Time           `json:"otp_verified_at,omitempty"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	Cancellation  *CancellationDetails `json:"cancellation,omitempty"`
	UpdatedAt     time.Time            `json:"updated_at"`

	Messages []ChatMessage `json:"messages"`
	Rating   RideRating    `json:"rating"`
}

// CancellationDetails records who ended the ride and how far it had got. DriverID and
// OTPVerifiedAt keep the binding that the cancellation released.
type CancellationDetails struct {
	By            types.UserRole `json:"by"`
	Reason        string         `json:"reason"`
	At            time.Time      `json:"at"`
	DriverID      *uuid.UUID     `json:"driver_id,omitempty"`
	OTPVerifiedAt *time.Time     `json:"otp_verified_at,omitempty"`
}

type ChatMessage struct {
	By   types.UserRole `json:"by"`
	Text string         `json:"text"`
	At   time.Time      `json:"at"`
}

type RatingEntry struct {
	Stars   int       `json:"stars"`
	Comment string    `json:"comment"`
	At      time.Time `json:"at"`
}

// RideRating holds at most one rating per direction.
type RideRating struct {
	UserToDriver *RatingEntry `json:"user_to_driver,omitempty"`
	DriverToUser *RatingEntry `json:"driver_to_user,omitempty"`
}

// Given returns the rating written by a party of the given role.
func (r RideRating) Given(by types.UserRole) *RatingEntry {
	if by == types.RoleRider {
		return r.UserToDriver
	}
	return r.DriverToUser
}

// Set writes the rating given by role.
func (r *RideRating) Set(by types.UserRole, e RatingEntry) {
	if by == types.RoleRider {
		r.UserToDriver = &e
		return
	}
	r.DriverToUser = &e
}

// HasDriver reports whether a driver is bound to the ride.
func (r *Ride) HasDriver() bool {
	return r.DriverID != nil && *r.DriverID != uuid.Nil
}

// IsDriver reports whether id is the bound driver.
func (r *Ride) IsDriver(id uuid.UUID) bool {
	return r.HasDriver() && *r.DriverID == id
}

// AssignedDriver returns the bound driver, or the driver a cancellation released.
func (r *Ride) AssignedDriver() (uuid.UUID, bool) {
	if r.HasDriver() {
		return *r.DriverID, true
	}
	if r.Cancellation != nil && r.Cancellation.DriverID != nil && *r.Cancellation.DriverID != uuid.Nil {
		return *r.Cancellation.DriverID, true
	}
	return uuid.Nil, false
}

// Cancel moves the ride to cancelled and releases the driver binding and passcode
// verification into the cancellation record.
func (r *Ride) Cancel(by types.UserRole, reason string, at time.Time) {
	r.Status = types.StatusCancelled
	r.Cancellation = &CancellationDetails{
		By:            by,
		Reason:        reason,
		At:            at,
		DriverID:      r.DriverID,
		OTPVerifiedAt: r.OTPVerifiedAt,
	}
	r.DriverID = nil
	r.OTPVerifiedAt = nil
}

// RoleOf returns the role id plays in the ride, or false when id is not a party.
// A driver released by a cancellation is still a party.
func (r *Ride) RoleOf(id uuid.UUID) (types.UserRole, bool) {
	if r.RiderID == id {
		return types.RoleRider, true
	}
	if driver, ok := r.AssignedDriver(); ok && driver == id {
		return types.RoleDriver, true
	}
	return "", false
}

// IsParty reports whether the identity takes part in the ride in its claimed role.
func (r *Ride) IsParty(who Identity) bool {
	role, ok := r.RoleOf(who.ID)
	return ok && role == who.Role
}

// Counterparty returns the id of the other side, if bound.
func (r *Ride) Counterparty(role types.UserRole) (uuid.UUID, bool) {
	if role == types.RoleRider {
		return r.AssignedDriver()
	}
	return r.RiderID, true
}

// Validate checks the structural invariants that must hold after every transition.
func (r *Ride) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", types.ErrInvalidStatus, r.Status)
	}

	needsDriver := r.Status == types.StatusAccepted || r.Status == types.StatusOngoing || r.Status == types.StatusCompleted
	if r.HasDriver() != needsDriver {
		return fmt.Errorf("%w: driver binding does not match status %s", types.ErrInvalidStatus, r.Status)
	}

	verified := r.Status == types.StatusOngoing || r.Status == types.StatusCompleted
	if (r.OTPVerifiedAt != nil) != verified {
		return fmt.Errorf("%w: otp verification does not match status %s", types.ErrInvalidStatus, r.Status)
	}

	if (r.Cancellation != nil) != (r.Status == types.StatusCancelled) {
		return fmt.Errorf("%w: cancellation details do not match status %s", types.ErrInvalidStatus, r.Status)
	}

	return nil
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (r *Ride) Clone() *Ride {
	if r == nil {
		return nil
	}
	c := *r
	if r.DriverID != nil {
		id := *r.DriverID
		c.DriverID = &id
	}
	c.AcceptedAt = cloneTime(r.AcceptedAt)
	c.OTPVerifiedAt = cloneTime(r.OTPVerifiedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	if r.Cancellation != nil {
		cd := *r.Cancellation
		if cd.DriverID != nil {
			id := *cd.DriverID
			cd.DriverID = &id
		}
		cd.OTPVerifiedAt = cloneTime(cd.OTPVerifiedAt)
		c.Cancellation = &cd
	}
	c.Messages = slices.Clone(r.Messages)
	if c.Messages == nil {
		c.Messages = []ChatMessage{}
	}
	if r.Rating.UserToDriver != nil {
		e := *r.Rating.UserToDriver
		c.Rating.UserToDriver = &e
	}
	if r.Rating.DriverToUser != nil {
		e := *r.Rating.DriverToUser
		c.Rating.DriverToUser = &e
	}
	return &c
}

// Redacted returns a copy without the passcode.
func (r *Ride) Redacted() *Ride {
	c := r.Clone()
	c.OTP = ""
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// RideView is a ride enriched at read time with party summaries.
type RideView struct {
	*Ride
	Rider  *PartySummary `json:"rider,omitempty"`
	Driver *PartySummary `json:"driver,omitempty"`
}

// CreateRideRequest carries the rider's input for a new ride.
type CreateRideRequest struct {
	Pickup       Location
	Destination  Location
	VehicleClass types.VehicleClass
}

// CheckUpdate verifies that after is a legal successor of before. Identity fields and
// the passcode never change. A bound driver never changes and is released only by a
// cancellation that records it. A status change follows the state machine, and after
// must be structurally valid.
func CheckUpdate(before, after *Ride) error {
	if after.ID != before.ID || after.RiderID != before.RiderID {
		return fmt.Errorf("%w: ride identity changed", types.ErrInvalidStatus)
	}
	if after.OTP != before.OTP {
		return fmt.Errorf("%w: passcode is write-once", types.ErrInvalidStatus)
	}
	cancelling := after.Status == types.StatusCancelled && before.Status != types.StatusCancelled
	if cancelling && after.Cancellation != nil && !sameID(after.Cancellation.DriverID, before.DriverID) {
		return fmt.Errorf("%w: cancellation must record the bound driver", types.ErrInvalidStatus)
	}
	if before.HasDriver() && !after.IsDriver(*before.DriverID) && !(cancelling && !after.HasDriver()) {
		return fmt.Errorf("%w: driver is immutable once bound", types.ErrInvalidStatus)
	}
	if after.Status != before.Status && !CanTransition(before.Status, after.Status) {
		return fmt.Errorf("%w: %s -> %s", types.ErrInvalidStatus, before.Status, after.Status)
	}
	if len(after.Messages) < len(before.Messages) {
		return fmt.Errorf("%w: messages are append-only", types.ErrInvalidStatus)
	}
	if before.Rating.UserToDriver != nil && !sameEntry(before.Rating.UserToDriver, after.Rating.UserToDriver) {
		return fmt.Errorf("%w: rating already written", types.ErrInvalidStatus)
	}
	if before.Rating.DriverToUser != nil && !sameEntry(before.Rating.DriverToUser, after.Rating.DriverToUser) {
		return fmt.Errorf("%w: rating already written", types.ErrInvalidStatus)
	}
	return after.Validate()
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameEntry(a, b *RatingEntry) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Stars == b.Stars && a.Comment == b.Comment && a.At.Equal(b.At)
}
