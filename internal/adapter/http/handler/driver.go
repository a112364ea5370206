package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type Driver struct {
	service DriverService
	l       logger.Logger
}

type DriverService interface {
	GoOnline(ctx context.Context, driverID uuid.UUID, latitude, longitude float64) error
	GoOffline(ctx context.Context, driverID uuid.UUID) error
	UpdateLocation(ctx context.Context, driverID uuid.UUID, latitude, longitude float64) error
}

func NewDriver(service DriverService, l logger.Logger) *Driver {
	return &Driver{
		service: service,
		l:       l,
	}
}

// GoOnline godoc
// @Summary      Go online
// @Description  Marks the driver available and indexes their position for dispatch.
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.CoordinateUpdateReq  true  "Current position"
// @Success      200      {object}  map[string]any
// @Failure      422      {object}  map[string]any
// @Router       /drivers/online [post]
func (h *Driver) GoOnline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionDriverOnline)
	driverID := identity(r).ID

	var req dto.CoordinateUpdateReq
	if !h.readCoordinates(ctx, w, r, &req) {
		return
	}

	loc := req.ToModel()
	if err := h.service.GoOnline(ctx, driverID, loc.Latitude, loc.Longitude); err != nil {
		failed(ctx, h.l, w, "failed to set driver status to online", err)
		return
	}

	response := envelope{
		"status":  types.DriverAvailable,
		"message": "You are now online and ready to accept rides",
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "driver set to online successfully", "driver_id", driverID)
}

// GoOffline godoc
// @Summary      Go offline
// @Tags         Drivers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]any
// @Router       /drivers/offline [post]
func (h *Driver) GoOffline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionDriverOffline)
	driverID := identity(r).ID

	if err := h.service.GoOffline(ctx, driverID); err != nil {
		failed(ctx, h.l, w, "failed to set driver status to offline", err)
		return
	}

	response := envelope{
		"status":  types.DriverOffline,
		"message": "You are now offline",
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "driver set to offline successfully", "driver_id", driverID)
}

// UpdateLocation godoc
// @Summary      Update position
// @Description  Moves the driver in the dispatch index and forwards the position to the rider of an accepted or ongoing ride.
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.CoordinateUpdateReq  true  "Current position"
// @Success      200      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Router       /drivers/location [post]
func (h *Driver) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionDriverLocation)
	driverID := identity(r).ID

	var req dto.CoordinateUpdateReq
	if !h.readCoordinates(ctx, w, r, &req) {
		return
	}

	loc := req.ToModel()
	if err := h.service.UpdateLocation(ctx, driverID, loc.Latitude, loc.Longitude); err != nil {
		failed(ctx, h.l, w, "failed to update driver location", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"location": loc}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
	}
}

func (h *Driver) readCoordinates(ctx context.Context, w http.ResponseWriter, r *http.Request, req *dto.CoordinateUpdateReq) bool {
	if err := readJSON(w, r, req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return false
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return false
	}
	return true
}
