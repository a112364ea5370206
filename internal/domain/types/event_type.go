package types

// PushEvent names a message pushed to a party's live connection.
type PushEvent string

func (e PushEvent) String() string {
	return string(e)
}

const (
	EventRideOffer     PushEvent = "ride-offer"
	EventRideAccepted  PushEvent = "ride-accepted"
	EventRideTaken     PushEvent = "ride-taken"
	EventRideStarted   PushEvent = "ride-started"
	EventRideCompleted PushEvent = "ride-completed"
	EventRideCancelled PushEvent = "ride-cancelled"
	EventChatMessage   PushEvent = "chat-message"

	EventRejoinSuccess  PushEvent = "rejoin-ride-success"
	EventRejoinError    PushEvent = "rejoin-ride-error"
	EventDriverLocation PushEvent = "driver-location"
	EventError          PushEvent = "error"
	EventPong           PushEvent = "pong"
)

// Inbound websocket events.
const (
	InboundRejoinRide     = "rejoin-ride"
	InboundLocationUpdate = "location-update"
	InboundPing           = "ping"
)

// RideEvent is an audit entry kind stored next to the ride.
type RideEvent string

func (s RideEvent) String() string {
	return string(s)
}

const (
	AuditRideRequested RideEvent = "RIDE_REQUESTED"
	AuditDriverMatched RideEvent = "DRIVER_MATCHED"
	AuditRideStarted   RideEvent = "RIDE_STARTED"
	AuditRideCompleted RideEvent = "RIDE_COMPLETED"
	AuditRideCancelled RideEvent = "RIDE_CANCELLED"
	AuditStatusChanged RideEvent = "STATUS_CHANGED"
)

// AuditEventFor maps a status change to its audit entry kind.
func AuditEventFor(to RideStatus) RideEvent {
	switch to {
	case StatusPending:
		return AuditRideRequested
	case StatusAccepted:
		return AuditDriverMatched
	case StatusOngoing:
		return AuditRideStarted
	case StatusCompleted:
		return AuditRideCompleted
	case StatusCancelled:
		return AuditRideCancelled
	}
	return AuditStatusChanged
}
