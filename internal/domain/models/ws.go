package models

import (
	"encoding/json"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// PushMessage is the envelope written to a party's live connection.
type PushMessage struct {
	Event  types.PushEvent `json:"event"`
	Data   any             `json:"data,omitempty"`
	SentAt time.Time       `json:"sent_at"`
}

// InboundMessage is what clients send over the websocket.
type InboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RideTaken tells a candidate that an offer is gone.
type RideTaken struct {
	RideID  string `json:"ride_id"`
	Message string `json:"message"`
}

// RideCancelled is pushed to the other party on cancellation.
type RideCancelled struct {
	Ride        *Ride          `json:"ride"`
	CancelledBy types.UserRole `json:"cancelled_by"`
}

// RideAccepted is pushed to the rider once a driver is bound.
type RideAccepted struct {
	Ride   *Ride         `json:"ride"`
	Driver *PartySummary `json:"driver,omitempty"`
}

// ChatPush is pushed to the other party of a chat message.
type ChatPush struct {
	RideID  string      `json:"ride_id"`
	Message ChatMessage `json:"message"`
}

// RejoinError tells a reconnecting client to drop local ride state.
type RejoinError struct {
	RideID  string `json:"ride_id,omitempty"`
	Message string `json:"message"`
	Clear   bool   `json:"clear"`
}
