package dto

import (
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type CoordinateUpdateReq struct {
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
}

func (r *CoordinateUpdateReq) Validate(v *validator.Validator) {
	if r.Latitude != nil && r.Longitude != nil {
		v.Check(*r.Latitude >= -90 && *r.Latitude <= 90, "lat", "must be between -90 and 90")
		v.Check(*r.Longitude >= -180 && *r.Longitude <= 180, "lng", "must be between -180 and 180")
	} else {
		v.Check(r.Latitude != nil, "lat", "must be provided")
		v.Check(r.Longitude != nil, "lng", "must be provided")
	}
}

func (r *CoordinateUpdateReq) ToModel() models.Location {
	return models.Location{Latitude: *r.Latitude, Longitude: *r.Longitude}
}
