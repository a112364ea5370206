package types

import "errors"

var (
	// ErrInvalidInput is returned for malformed input rejected before the store is touched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFoundOrWrongState covers a missing ride, a ride of another party and a
	// precondition status mismatch. Callers cannot tell them apart.
	ErrNotFoundOrWrongState = errors.New("ride not found or not in the required state")

	ErrInvalidOTP         = errors.New("incorrect otp")
	ErrTooManyOTPAttempts = errors.New("too many incorrect otp attempts, please contact support")

	// ErrConflict means a conditional update lost against a concurrent transition.
	ErrConflict = errors.New("ride already changed")

	ErrUnauthorized  = errors.New("not a party to this ride")
	ErrAlreadyRated  = errors.New("ride already rated")
	ErrNoActiveRide  = errors.New("no active ride found")
	ErrRideNotFound  = errors.New("ride not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrNotDriver     = errors.New("user is not a driver")
	ErrDriverOffline = errors.New("driver is offline")
	ErrInvalidStatus = errors.New("invalid status transition")

	// access tokens
	ErrTokenNotIssued = errors.New("could not issue access token")
	ErrTokenInvalid   = errors.New("access token is not valid for this service")
	ErrTokenExpired   = errors.New("access token has expired")

	ErrLocationNotFound = errors.New("location not found")
	ErrGeocoderDisabled = errors.New("geocoder is disabled")

	ErrDatabaseFailed            = errors.New("database failed")
	ErrFailedToPublishRideStatus = errors.New("failed to publish ride status")
)
