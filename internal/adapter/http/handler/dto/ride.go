package dto

import (
	"strings"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type LocationReq struct {
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
	Address   string   `json:"address"`
}

func (l *LocationReq) validate(v *validator.Validator, field string) {
	if l.Latitude == nil && l.Longitude == nil {
		v.Check(strings.TrimSpace(l.Address) != "", field, "must have coordinates or an address")
	} else {
		v.Check(l.Latitude != nil && l.Longitude != nil, field, "must have both lat and lng")
		if l.Latitude != nil && l.Longitude != nil {
			v.Check(models.ValidCoordinates(*l.Latitude, *l.Longitude), field, "coordinates out of range")
		}
	}
	v.Check(validator.MaxChars(l.Address, 255), field+".address", "must not be more than 255 characters long")
}

func (l *LocationReq) toModel() models.Location {
	loc := models.Location{Address: strings.TrimSpace(l.Address)}
	if l.Latitude != nil && l.Longitude != nil {
		loc.Latitude, loc.Longitude = *l.Latitude, *l.Longitude
	}
	return loc
}

type CreateRideRequest struct {
	Pickup       LocationReq `json:"pickup"`
	Destination  LocationReq `json:"destination"`
	VehicleClass string      `json:"vehicle_class"`
}

func (r *CreateRideRequest) Validate(v *validator.Validator) {
	r.Pickup.validate(v, "pickup")
	r.Destination.validate(v, "destination")

	v.Check(r.VehicleClass != "", "vehicle_class", "must be provided")
	if r.VehicleClass != "" {
		v.Check(validator.PermittedValue(r.VehicleClass, types.VehicleClasses...), "vehicle_class", "must be one of car, moto, or auto")
	}
}

func (r *CreateRideRequest) ToModel() models.CreateRideRequest {
	return models.CreateRideRequest{
		Pickup:       r.Pickup.toModel(),
		Destination:  r.Destination.toModel(),
		VehicleClass: types.VehicleClass(r.VehicleClass),
	}
}

type StartRideRequest struct {
	OTP string `json:"otp"`
}

func (r *StartRideRequest) Validate(v *validator.Validator) {
	v.Check(r.OTP != "", "otp", "must be provided")
	v.Check(validator.Matches(r.OTP, validator.DigitsRX) && len(r.OTP) == 6, "otp", "must be 6 digits")
}

type CancelRideRequest struct {
	Reason string `json:"reason"`
}

func (r *CancelRideRequest) Validate(v *validator.Validator) {
	v.Check(validator.MaxChars(r.Reason, 500), "reason", "must not be more than 500 characters long")
}

type RateRideRequest struct {
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

func (r *RateRideRequest) Validate(v *validator.Validator) {
	v.Check(r.Stars >= 1 && r.Stars <= 5, "stars", "must be between 1 and 5")
	v.Check(validator.MaxChars(r.Comment, 500), "comment", "must not be more than 500 characters long")
}

type MessageRequest struct {
	Text string `json:"text"`
}

func (r *MessageRequest) Validate(v *validator.Validator) {
	v.Check(validator.NotBlank(r.Text), "text", "must be provided")
	v.Check(validator.MaxChars(r.Text, 1000), "text", "must not be more than 1000 characters long")
}
