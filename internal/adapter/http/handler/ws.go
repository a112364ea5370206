package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/rejoin"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

const replyTimeout = 3 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type ConnRegistry interface {
	Register(id uuid.UUID, ch ws.Channel) error
	Remove(id uuid.UUID, ch ws.Channel) bool
}

type Rejoiner interface {
	Rejoin(ctx context.Context, actor models.Identity, claimedRideID string, ch ws.Channel) (rejoin.Result, error)
}

type LocationUpdater interface {
	UpdateLocation(ctx context.Context, driverID uuid.UUID, latitude, longitude float64) error
}

// WS serves the live channel of riders and drivers.
type WS struct {
	hub      ConnRegistry
	rejoin   Rejoiner
	location LocationUpdater
	l        logger.Logger
}

func NewWS(hub ConnRegistry, rejoin Rejoiner, location LocationUpdater, l logger.Logger) *WS {
	return &WS{
		hub:      hub,
		rejoin:   rejoin,
		location: location,
		l:        l,
	}
}

type rejoinRequest struct {
	RideID string `json:"ride_id"`
}

// Connect godoc
// @Summary      Live channel
// @Description  Upgrades to a websocket. The token may be passed as ?token= when headers cannot be set.
// @Tags         Websocket
// @Security     BearerAuth
// @Param        token  query  string  false  "Access token"
// @Success      101
// @Failure      401  {object}  map[string]any
// @Router       /ws [get]
func (h *WS) Connect(w http.ResponseWriter, r *http.Request) {
	who := identity(r)
	ctx := wrap.WithUserID(wrap.WithAction(context.WithoutCancel(r.Context()), types.ActionWSConnect), who.ID.String())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		h.l.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	ch := ws.NewConn(who.ID, conn)
	if err := h.hub.Register(who.ID, ch); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to register connection", err)
		_ = ch.Close()
		return
	}
	h.l.Info(ctx, "party connected", "role", who.Role.String())

	listenCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		h.hub.Remove(who.ID, ch)
		_ = ch.Close()
		h.l.Info(ctx, "party disconnected")
	}()

	err = ch.Listen(listenCtx, func(ctx context.Context, data []byte) error {
		return h.handle(ctx, who, ch, data)
	})
	if err != nil && !websocket.IsCloseError(errors.Unwrap(err), websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.l.Debug(ctx, "listen stopped", "error", err.Error())
	}
}

// handle processes one inbound frame. Bad input is answered with an error event
// and the connection stays open; only a failed reply ends it.
func (h *WS) handle(ctx context.Context, who models.Identity, ch ws.Channel, data []byte) error {
	var in models.InboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return h.reply(ctx, ch, types.EventError, envelope{"message": "malformed message"})
	}

	switch in.Event {
	case types.InboundPing:
		return h.reply(ctx, ch, types.EventPong, nil)

	case types.InboundRejoinRide:
		var req rejoinRequest
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &req); err != nil {
				return h.reply(ctx, ch, types.EventError, envelope{"message": "malformed rejoin request"})
			}
		}
		// Rejoin answers on ch itself
		if _, err := h.rejoin.Rejoin(ctx, who, req.RideID, ch); err != nil {
			h.l.Error(wrap.ErrorCtx(ctx, err), "failed to rejoin ride", err)
			return h.reply(ctx, ch, types.EventError, envelope{"message": "rejoin failed, retry later"})
		}
		return nil

	case types.InboundLocationUpdate:
		if !who.IsDriver() {
			return h.reply(ctx, ch, types.EventError, envelope{"message": "only drivers send location updates"})
		}
		var req dto.CoordinateUpdateReq
		if err := json.Unmarshal(in.Data, &req); err != nil {
			return h.reply(ctx, ch, types.EventError, envelope{"message": "malformed location update"})
		}
		v := validator.New()
		req.Validate(v)
		if !v.Valid() {
			return h.reply(ctx, ch, types.EventError, envelope{"message": v.Error()})
		}
		loc := req.ToModel()
		if err := h.location.UpdateLocation(ctx, who.ID, loc.Latitude, loc.Longitude); err != nil {
			if GetCode(err) == http.StatusInternalServerError {
				h.l.Error(wrap.ErrorCtx(ctx, err), "failed to update location", err)
				return h.reply(ctx, ch, types.EventError, envelope{"message": "location update failed"})
			}
			return h.reply(ctx, ch, types.EventError, envelope{"message": err.Error()})
		}
		return nil

	default:
		return h.reply(ctx, ch, types.EventError, envelope{"message": "unknown event " + in.Event})
	}
}

func (h *WS) reply(ctx context.Context, ch ws.Channel, event types.PushEvent, data any) error {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	return ch.Send(ctx, models.PushMessage{Event: event, Data: data, SentAt: time.Now().UTC()})
}
