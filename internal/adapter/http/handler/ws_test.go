package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/rejoin"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

type fakeRejoiner struct {
	mu      sync.Mutex
	claimed []string
}

func (f *fakeRejoiner) Rejoin(ctx context.Context, _ models.Identity, claimed string, ch ws.Channel) (rejoin.Result, error) {
	f.mu.Lock()
	f.claimed = append(f.claimed, claimed)
	f.mu.Unlock()

	err := ch.Send(ctx, models.PushMessage{
		Event: types.EventRejoinError,
		Data:  models.RejoinError{RideID: claimed, Message: "ride is no longer active", Clear: true},
	})
	return rejoin.Result{Clear: true}, err
}

type fakeLocations struct {
	mu    sync.Mutex
	moves int
	err   error
}

func (f *fakeLocations) UpdateLocation(context.Context, uuid.UUID, float64, float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves++
	return f.err
}

func (f *fakeLocations) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeLocations) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.moves
}

type wsFixture struct {
	hub       *ws.ConnectionHub
	rejoin    *fakeRejoiner
	locations *fakeLocations
	srv       *httptest.Server
}

func newWSFixture(t *testing.T, who models.Identity) *wsFixture {
	t.Helper()

	l := logger.New(io.Discard, "test", logger.LevelDebug)
	f := &wsFixture{
		hub:       ws.NewConnHub(l, nil),
		rejoin:    &fakeRejoiner{},
		locations: &fakeLocations{},
	}
	h := NewWS(f.hub, f.rejoin, f.locations, l)

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Connect(w, r.WithContext(models.WithIdentity(r.Context(), who)))
	}))
	t.Cleanup(func() {
		f.hub.Close()
		f.srv.Close()
	})
	return f
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, event string, data any) models.InboundMessage {
	t.Helper()

	msg := map[string]any{"event": event}
	if data != nil {
		msg["data"] = data
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.InboundMessage
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	return got
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWSRegistersAndAnswersPing(t *testing.T) {
	who := models.Identity{ID: uuid.New(), Role: types.RoleRider}
	f := newWSFixture(t, who)
	conn := f.dial(t)

	waitFor(t, func() bool {
		_, ok := f.hub.Lookup(who.ID)
		return ok
	})

	if got := roundTrip(t, conn, types.InboundPing, nil); got.Event != string(types.EventPong) {
		t.Fatalf("expected pong, got %q", got.Event)
	}

	conn.Close()
	waitFor(t, func() bool { return f.hub.Len() == 0 })
}

func TestWSRejoinAndUnknownEvents(t *testing.T) {
	who := models.Identity{ID: uuid.New(), Role: types.RoleRider}
	f := newWSFixture(t, who)
	conn := f.dial(t)

	rideID := uuid.NewString()
	got := roundTrip(t, conn, types.InboundRejoinRide, map[string]string{"ride_id": rideID})
	if got.Event != string(types.EventRejoinError) {
		t.Fatalf("expected rejoin answer, got %q", got.Event)
	}
	var payload models.RejoinError
	if err := json.Unmarshal(got.Data, &payload); err != nil || !payload.Clear {
		t.Fatalf("expected clear instruction, got %s (%v)", got.Data, err)
	}
	f.rejoin.mu.Lock()
	claimed := f.rejoin.claimed
	f.rejoin.mu.Unlock()
	if len(claimed) != 1 || claimed[0] != rideID {
		t.Fatalf("claimed ride id not passed through")
	}

	if got := roundTrip(t, conn, "teleport", nil); got.Event != string(types.EventError) {
		t.Fatalf("unknown event: expected error, got %q", got.Event)
	}

	// connection survives bad input
	if got := roundTrip(t, conn, types.InboundPing, nil); got.Event != string(types.EventPong) {
		t.Fatalf("expected pong after error, got %q", got.Event)
	}
}

func TestWSLocationUpdateIsForDrivers(t *testing.T) {
	rider := models.Identity{ID: uuid.New(), Role: types.RoleRider}
	f := newWSFixture(t, rider)
	conn := f.dial(t)

	got := roundTrip(t, conn, types.InboundLocationUpdate, map[string]float64{"lat": 43.2, "lng": 76.9})
	if got.Event != string(types.EventError) || f.locations.count() != 0 {
		t.Fatalf("rider location update must be refused, got %q", got.Event)
	}

	driver := models.Identity{ID: uuid.New(), Role: types.RoleDriver}
	f = newWSFixture(t, driver)
	conn = f.dial(t)

	if err := conn.WriteJSON(map[string]any{
		"event": types.InboundLocationUpdate,
		"data":  map[string]float64{"lat": 43.2, "lng": 76.9},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, func() bool { return f.locations.count() == 1 })

	got = roundTrip(t, conn, types.InboundLocationUpdate, map[string]float64{"lat": 143.2, "lng": 76.9})
	if got.Event != string(types.EventError) {
		t.Fatalf("out of range update: expected error, got %q", got.Event)
	}

	f.locations.fail(types.ErrDriverOffline)
	got = roundTrip(t, conn, types.InboundLocationUpdate, map[string]float64{"lat": 43.2, "lng": 76.9})
	if got.Event != string(types.EventError) {
		t.Fatalf("offline driver: expected error, got %q", got.Event)
	}
}
