package models

import (
	"math"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Filters represents pagination options for list endpoints.
type Filters struct {
	Page     int
	PageSize int
}

func (f Filters) Validate(v *validator.Validator) {
	// Check that the page and page_size parameters contain sensible values.
	v.Check(f.Page > 0, "page", "must be greater than zero")
	v.Check(f.Page <= 10_000_000, "page", "must be a maximum of 10 million")
	v.Check(f.PageSize > 0, "page_size", "must be greater than zero")
	v.Check(f.PageSize <= MaxPageSize, "page_size", "must be a maximum of 100")
}

func (f Filters) Limit() int {
	return f.PageSize
}

func (f Filters) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// RideFilter selects rides of one party, newest first.
type RideFilter struct {
	PartyID uuid.UUID
	Role    types.UserRole
	Status  types.RideStatus // empty means any

	Filters
}

func (f RideFilter) Validate(v *validator.Validator) {
	f.Filters.Validate(v)
	v.Check(f.Status == "" || f.Status.Valid(), "status", "unknown ride status")
	v.Check(f.Role.Valid(), "role", "must be rider or driver")
}

type Metadata struct {
	CurrentPage  int `json:"current_page"`
	PageSize     int `json:"page_size"`
	FirstPage    int `json:"first_page"`
	LastPage     int `json:"last_page"`
	TotalRecords int `json:"total_records"`
}

// CalculateMetadata derives pagination metadata. The last page is rounded up, so
// 12 records with a page size of 5 give 3 pages.
func CalculateMetadata(totalRecords, page, pageSize int) Metadata {
	if totalRecords == 0 {
		return Metadata{
			CurrentPage: page,
			PageSize:    pageSize,
		}
	}
	return Metadata{
		CurrentPage:  page,
		PageSize:     pageSize,
		FirstPage:    1,
		LastPage:     int(math.Ceil(float64(totalRecords) / float64(pageSize))),
		TotalRecords: totalRecords,
	}
}
