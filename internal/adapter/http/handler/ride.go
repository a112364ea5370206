package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type RideService interface {
	Create(ctx context.Context, riderID uuid.UUID, req models.CreateRideRequest) (*models.Ride, error)
	Accept(ctx context.Context, rideID, driverID uuid.UUID) (*models.RideView, error)
	Start(ctx context.Context, rideID, driverID uuid.UUID, otp string) (*models.RideView, error)
	Complete(ctx context.Context, rideID, driverID uuid.UUID) (*models.RideView, error)
	Cancel(ctx context.Context, rideID uuid.UUID, actor models.Identity, reason string) (*models.RideView, error)
	Rate(ctx context.Context, rideID uuid.UUID, actor models.Identity, stars int, comment string) (*models.RideView, error)
	PostMessage(ctx context.Context, rideID uuid.UUID, actor models.Identity, text string) (*models.ChatMessage, error)
	GetActive(ctx context.Context, actor models.Identity) (*models.RideView, error)
	Get(ctx context.Context, rideID uuid.UUID, actor models.Identity) (*models.RideView, error)
	History(ctx context.Context, actor models.Identity, status types.RideStatus, filters models.Filters) ([]*models.Ride, models.Metadata, error)
}

type Ride struct {
	service RideService
	l       logger.Logger
}

func NewRide(service RideService, l logger.Logger) *Ride {
	return &Ride{
		service: service,
		l:       l,
	}
}

// CreateRide godoc
// @Summary      Request a ride
// @Description  Creates a pending ride and dispatches offers to nearby drivers. The response is the only place the passcode is returned.
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.CreateRideRequest  true  "Pickup, destination and vehicle class"
// @Success      201      {object}  map[string]any
// @Failure      400      {object}  map[string]any
// @Failure      422      {object}  map[string]any
// @Router       /rides [post]
func (h *Ride) CreateRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionCreateRide)
	who := identity(r)

	var req dto.CreateRideRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.service.Create(ctx, who.ID, req.ToModel())
	if err != nil {
		failed(ctx, h.l, w, "failed to create ride", err)
		return
	}

	response := envelope{"ride": ride.Redacted(), "otp": ride.OTP}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		return
	}

	h.l.Info(ctx, "ride created", "ride_id", ride.ID)
}

// AcceptRide godoc
// @Summary      Accept a ride offer
// @Description  Binds the calling driver to a pending ride. Exactly one of several concurrent accepts succeeds; the rest get 409.
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  map[string]any
// @Failure      404      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Router       /rides/{ride_id}/accept [post]
func (h *Ride) AcceptRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionAcceptRide)

	rideID, ok := h.rideID(ctx, w, r)
	if !ok {
		return
	}

	ride, err := h.service.Accept(ctx, rideID, identity(r).ID)
	if err != nil {
		failed(ctx, h.l, w, "failed to accept ride", err)
		return
	}

	h.writeRide(ctx, w, ride)
}

// StartRide godoc
// @Summary      Start a ride
// @Description  Verifies the rider's passcode and moves the ride to ongoing. Five wrong passcodes lock the ride.
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string                true  "Ride ID"
// @Param        request  body      dto.StartRideRequest  true  "Passcode"
// @Success      200      {object}  map[string]any
// @Failure      400      {object}  map[string]any
// @Failure      404      {object}  map[string]any
// @Router       /rides/{ride_id}/start [post]
func (h *Ride) StartRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionStartRide)

	rideID, ok := h.rideID(ctx, w, r)
	if !ok {
		return
	}

	var req dto.StartRideRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.service.Start(ctx, rideID, identity(r).ID, req.OTP)
	if err != nil {
		failed(ctx, h.l, w, "failed to start ride", err)
		return
	}

	h.writeRide(ctx, w, ride)
}

// CompleteRide godoc
// @Summary      Complete a ride
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  map[string]any
// @Failure      404      {object}  map[string]any
// @Router       /rides/{ride_id}/complete [post]
func (h *Ride) CompleteRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionCompleteRide)

	rideID, ok := h.rideID(ctx, w, r)
	if !ok {
		return
	}

	ride, err := h.service.Complete(ctx, rideID, identity(r).ID)
	if err != nil {
		failed(ctx, h.l, w, "failed to complete ride", err)
		return
	}

	h.writeRide(ctx, w, ride)
}

// CancelRide godoc
// @Summary      Cancel a ride
// @Description  Either party may cancel a ride that has not finished. The body is optional.
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string                 true   "Ride ID"
// @Param        request  body      dto.CancelRideRequest  false  "Reason"
// @Success      200      {object}  map[string]any
// @Failure      404      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Router       /rides/{ride_id}/cancel [post]
func (h *Ride) CancelRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionCancelRide)

	rideID, ok := h.rideID(ctx, w, r)
	if !ok {
		return
	}

	var req dto.CancelRideRequest
	if err := readOptionalJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.service.Cancel(ctx, rideID, identity(r), req.Reason)
	if err != nil {
		failed(ctx, h.l, w, "failed to cancel ride", err)
		return
	}

	h.writeRide(ctx, w, ride)
}

// RateRide godoc
// @Summary      Rate the other party
// @Description  Each party may rate a completed ride once.
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string               true  "Ride ID"
// @Param        request  body      dto.RateRideRequest  true  "Stars and comment"
// @Success      200      {object}  map[string]any
// @Failure      403      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Router       /rides/{ride_id}/rate [post]
func (h *Ride) RateRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRateRide)

	rideID, ok := h.rideID(ctx, w, r)
	if !ok {
		return
	}

	var req dto.RateRideRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.service.Rate(ctx, rideID, identity(r), req.Stars, req.Comment)
	if err != nil {
		failed(ctx, h.l, w, "failed to rate ride", err)
		return
	}

	h.writeRide(ctx, w, ride)
}

// PostMessage godoc
// @Summary      Send a chat message
// @Description  Appends a message to an accepted or ongoing ride and pushes it to the other party.
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string              true  "Ride ID"
// @Param        request  body      dto.MessageRequest  true  "Message"
// @Success      201      {object}  map[string]any
// @Failure      404      {object}  map[string]any
// @Router       /rides/{ride_id}/messages [post]
func (h *Ride) PostMessage(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionPostMessage)

	rideID, ok := h.rideID(ctx, w, r)
	if !ok {
		return
	}

	var req dto.MessageRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	msg, err := h.service.PostMessage(ctx, rideID, identity(r), req.Text)
	if err != nil {
		failed(ctx, h.l, w, "failed to post message", err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"message": msg}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
	}
}

// GetActiveRide godoc
// @Summary      Current ride
// @Description  Returns the caller's non-terminal ride, if any.
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]any
// @Failure      404  {object}  map[string]any
// @Router       /rides/active [get]
func (h *Ride) GetActiveRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionActiveRide)

	ride, err := h.service.GetActive(ctx, identity(r))
	if err != nil {
		failed(ctx, h.l, w, "failed to get active ride", err)
		return
	}

	h.writeRide(ctx, w, ride)
}

// GetRide godoc
// @Summary      Get a ride
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "Ride ID"
// @Success      200      {object}  map[string]any
// @Failure      404      {object}  map[string]any
// @Router       /rides/{ride_id} [get]
func (h *Ride) GetRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionGetRide)

	rideID, ok := h.rideID(ctx, w, r)
	if !ok {
		return
	}

	ride, err := h.service.Get(ctx, rideID, identity(r))
	if err != nil {
		failed(ctx, h.l, w, "failed to get ride", err)
		return
	}

	h.writeRide(ctx, w, ride)
}

// RideHistory godoc
// @Summary      Ride history
// @Description  Lists the caller's rides, newest first.
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        page       query     int     false  "Page"       default(1)
// @Param        page_size  query     int     false  "Page size"  default(10)
// @Param        status     query     string  false  "Status filter"
// @Success      200        {object}  map[string]any
// @Failure      422        {object}  map[string]any
// @Router       /rides/history [get]
func (h *Ride) RideHistory(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRideHistory)

	v := validator.New()
	filters := models.Filters{
		Page:     readInt(r, "page", 1, v),
		PageSize: readInt(r, "page_size", models.DefaultPageSize, v),
	}
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	status := types.RideStatus(r.URL.Query().Get("status"))
	rides, metadata, err := h.service.History(ctx, identity(r), status, filters)
	if err != nil {
		failed(ctx, h.l, w, "failed to list rides", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"rides": rides, "metadata": metadata}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
	}
}

func (h *Ride) rideID(ctx context.Context, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := rideIDParam(r)
	if err != nil {
		h.l.Warn(ctx, "invalid ride uuid format")
		badRequestResponse(w, err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func (h *Ride) writeRide(ctx context.Context, w http.ResponseWriter, ride *models.RideView) {
	if err := writeJSON(w, http.StatusOK, envelope{"ride": ride}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
	}
}
