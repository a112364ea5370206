package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

// fakeRides answers every call with ride/err and remembers the last arguments.
type fakeRides struct {
	ride *models.Ride
	err  error

	gotRideID uuid.UUID
	gotActor  models.Identity
	gotText   string
	gotReq    models.CreateRideRequest
	calls     int
}

func (f *fakeRides) view() *models.RideView {
	if f.ride == nil {
		return nil
	}
	return &models.RideView{Ride: f.ride.Redacted()}
}

func (f *fakeRides) Create(_ context.Context, riderID uuid.UUID, req models.CreateRideRequest) (*models.Ride, error) {
	f.calls++
	f.gotActor = models.Identity{ID: riderID, Role: types.RoleRider}
	f.gotReq = req
	return f.ride, f.err
}

func (f *fakeRides) Accept(_ context.Context, rideID, driverID uuid.UUID) (*models.RideView, error) {
	f.calls++
	f.gotRideID, f.gotActor = rideID, models.Identity{ID: driverID, Role: types.RoleDriver}
	return f.view(), f.err
}

func (f *fakeRides) Start(_ context.Context, rideID, driverID uuid.UUID, otp string) (*models.RideView, error) {
	f.calls++
	f.gotRideID, f.gotText = rideID, otp
	return f.view(), f.err
}

func (f *fakeRides) Complete(_ context.Context, rideID, _ uuid.UUID) (*models.RideView, error) {
	f.calls++
	f.gotRideID = rideID
	return f.view(), f.err
}

func (f *fakeRides) Cancel(_ context.Context, rideID uuid.UUID, actor models.Identity, reason string) (*models.RideView, error) {
	f.calls++
	f.gotRideID, f.gotActor, f.gotText = rideID, actor, reason
	return f.view(), f.err
}

func (f *fakeRides) Rate(_ context.Context, rideID uuid.UUID, actor models.Identity, _ int, comment string) (*models.RideView, error) {
	f.calls++
	f.gotRideID, f.gotActor, f.gotText = rideID, actor, comment
	return f.view(), f.err
}

func (f *fakeRides) PostMessage(_ context.Context, rideID uuid.UUID, actor models.Identity, text string) (*models.ChatMessage, error) {
	f.calls++
	f.gotRideID, f.gotActor, f.gotText = rideID, actor, text
	if f.err != nil {
		return nil, f.err
	}
	return &models.ChatMessage{By: actor.Role, Text: text}, nil
}

func (f *fakeRides) GetActive(_ context.Context, actor models.Identity) (*models.RideView, error) {
	f.calls++
	f.gotActor = actor
	return f.view(), f.err
}

func (f *fakeRides) Get(_ context.Context, rideID uuid.UUID, actor models.Identity) (*models.RideView, error) {
	f.calls++
	f.gotRideID, f.gotActor = rideID, actor
	return f.view(), f.err
}

func (f *fakeRides) History(_ context.Context, actor models.Identity, _ types.RideStatus, filters models.Filters) ([]*models.Ride, models.Metadata, error) {
	f.calls++
	f.gotActor = actor
	if f.err != nil {
		return nil, models.Metadata{}, f.err
	}
	return []*models.Ride{f.ride.Redacted()}, models.CalculateMetadata(1, filters.Page, filters.PageSize), nil
}

func newRideMux(svc RideService) *http.ServeMux {
	h := NewRide(svc, logger.New(io.Discard, "test", logger.LevelDebug))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rides", h.CreateRide)
	mux.HandleFunc("GET /rides/active", h.GetActiveRide)
	mux.HandleFunc("GET /rides/history", h.RideHistory)
	mux.HandleFunc("GET /rides/{ride_id}", h.GetRide)
	mux.HandleFunc("POST /rides/{ride_id}/accept", h.AcceptRide)
	mux.HandleFunc("POST /rides/{ride_id}/start", h.StartRide)
	mux.HandleFunc("POST /rides/{ride_id}/complete", h.CompleteRide)
	mux.HandleFunc("POST /rides/{ride_id}/cancel", h.CancelRide)
	mux.HandleFunc("POST /rides/{ride_id}/rate", h.RateRide)
	mux.HandleFunc("POST /rides/{ride_id}/messages", h.PostMessage)
	return mux
}

func do(t *testing.T, h http.Handler, who models.Identity, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req = req.WithContext(models.WithIdentity(req.Context(), who))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("response is not JSON: %v: %s", err, rec.Body.String())
		}
	}
	return rec, out
}

func sampleRide() *models.Ride {
	return &models.Ride{
		ID:           uuid.New(),
		RiderID:      uuid.New(),
		Status:       types.StatusPending,
		VehicleClass: types.ClassCar,
		OTP:          "123456",
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", types.ErrInvalidInput), http.StatusUnprocessableEntity},
		{types.ErrNotFoundOrWrongState, http.StatusNotFound},
		{types.ErrNoActiveRide, http.StatusNotFound},
		{types.ErrInvalidOTP, http.StatusBadRequest},
		{types.ErrTooManyOTPAttempts, http.StatusBadRequest},
		{types.ErrConflict, http.StatusConflict},
		{types.ErrAlreadyRated, http.StatusConflict},
		{types.ErrUnauthorized, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := GetCode(tt.err); got != tt.want {
			t.Fatalf("GetCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestCreateRide(t *testing.T) {
	rider := models.Identity{ID: uuid.New(), Role: types.RoleRider}
	ride := sampleRide()
	svc := &fakeRides{ride: ride}
	mux := newRideMux(svc)

	body := `{"pickup":{"lat":43.23,"lng":76.88},"destination":{"address":"Dostyk Ave 5"},"vehicle_class":"car"}`
	rec, out := do(t, mux, rider, http.MethodPost, "/rides", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if out["otp"] != "123456" {
		t.Fatalf("create response must carry the passcode, got %v", out["otp"])
	}
	if _, leaked := out["ride"].(map[string]any)["otp"]; leaked {
		t.Fatalf("ride object must not repeat the passcode")
	}
	if svc.gotActor.ID != rider.ID {
		t.Fatalf("rider id not taken from the token")
	}
	if svc.gotReq.Destination.Address != "Dostyk Ave 5" || svc.gotReq.Destination.HasCoordinates() {
		t.Fatalf("destination not mapped: %+v", svc.gotReq.Destination)
	}
}

func TestCreateRideRejectsBadInput(t *testing.T) {
	rider := models.Identity{ID: uuid.New(), Role: types.RoleRider}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"pickup":`, http.StatusBadRequest},
		{"unknown field", `{"passenger_id":"x"}`, http.StatusBadRequest},
		{"unknown class", `{"pickup":{"address":"a"},"destination":{"address":"b"},"vehicle_class":"bus"}`, http.StatusUnprocessableEntity},
		{"empty pickup", `{"pickup":{},"destination":{"address":"b"},"vehicle_class":"car"}`, http.StatusUnprocessableEntity},
		{"half coordinates", `{"pickup":{"lat":1},"destination":{"address":"b"},"vehicle_class":"car"}`, http.StatusUnprocessableEntity},
		{"out of range", `{"pickup":{"lat":91,"lng":0},"destination":{"address":"b"},"vehicle_class":"car"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRides{ride: sampleRide()}
			rec, _ := do(t, newRideMux(svc), rider, http.MethodPost, "/rides", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if svc.calls != 0 {
				t.Fatalf("service must not be called for rejected input")
			}
		})
	}
}

func TestServiceValidationErrorsBecomeFieldMap(t *testing.T) {
	v := validator.New()
	v.AddError("destination", "could not resolve address")
	svc := &fakeRides{err: fmt.Errorf("%w: %w", types.ErrInvalidInput, v)}

	rider := models.Identity{ID: uuid.New(), Role: types.RoleRider}
	body := `{"pickup":{"address":"a"},"destination":{"address":"nowhere"},"vehicle_class":"car"}`
	rec, out := do(t, newRideMux(svc), rider, http.MethodPost, "/rides", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	fields, ok := out["error"].(map[string]any)
	if !ok || fields["destination"] != "could not resolve address" {
		t.Fatalf("expected field map, got %v", out["error"])
	}
}

func TestRideErrorMapping(t *testing.T) {
	driver := models.Identity{ID: uuid.New(), Role: types.RoleDriver}
	rideID := uuid.New()

	tests := []struct {
		name string
		path string
		body string
		err  error
		want int
	}{
		{"accept lost race", "/accept", "", types.ErrConflict, http.StatusConflict},
		{"accept wrong state", "/accept", "", types.ErrNotFoundOrWrongState, http.StatusNotFound},
		{"wrong otp", "/start", `{"otp":"000000"}`, types.ErrInvalidOTP, http.StatusBadRequest},
		{"locked", "/start", `{"otp":"000000"}`, types.ErrTooManyOTPAttempts, http.StatusBadRequest},
		{"complete not ongoing", "/complete", "", types.ErrNotFoundOrWrongState, http.StatusNotFound},
		{"rate twice", "/rate", `{"stars":5}`, types.ErrAlreadyRated, http.StatusConflict},
		{"rate stranger", "/rate", `{"stars":5}`, types.ErrUnauthorized, http.StatusForbidden},
		{"store down", "/complete", "", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRides{err: tt.err}
			rec, out := do(t, newRideMux(svc), driver, http.MethodPost, "/rides/"+rideID.String()+tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if svc.gotRideID != rideID {
				t.Fatalf("ride id not taken from the path")
			}
			if tt.want == http.StatusInternalServerError && strings.Contains(fmt.Sprint(out["error"]), "connection refused") {
				t.Fatalf("internal error details leaked: %v", out["error"])
			}
		})
	}
}

func TestStartRideValidatesPasscodeFormat(t *testing.T) {
	driver := models.Identity{ID: uuid.New(), Role: types.RoleDriver}
	path := "/rides/" + uuid.NewString() + "/start"

	for _, otp := range []string{"", "12345", "1234567", "12a456"} {
		svc := &fakeRides{ride: sampleRide()}
		rec, _ := do(t, newRideMux(svc), driver, http.MethodPost, path, `{"otp":"`+otp+`"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("otp %q: expected 422, got %d", otp, rec.Code)
		}
		if svc.calls != 0 {
			t.Fatalf("otp %q: malformed passcode must not count as an attempt", otp)
		}
	}
}

func TestInvalidRideID(t *testing.T) {
	svc := &fakeRides{}
	rec, _ := do(t, newRideMux(svc), models.Identity{ID: uuid.New(), Role: types.RoleDriver}, http.MethodPost, "/rides/not-a-uuid/accept", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service must not be called")
	}
}

func TestCancelRideBodyIsOptional(t *testing.T) {
	ride := sampleRide()
	ride.Status = types.StatusCancelled
	rider := models.Identity{ID: ride.RiderID, Role: types.RoleRider}
	path := "/rides/" + ride.ID.String() + "/cancel"

	svc := &fakeRides{ride: ride}
	rec, out := do(t, newRideMux(svc), rider, http.MethodPost, path, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotText != "" || svc.gotActor != rider {
		t.Fatalf("unexpected call: reason %q actor %+v", svc.gotText, svc.gotActor)
	}
	if _, leaked := out["ride"].(map[string]any)["otp"]; leaked {
		t.Fatalf("ride reads must not carry the passcode")
	}

	svc = &fakeRides{ride: ride}
	rec, _ = do(t, newRideMux(svc), rider, http.MethodPost, path, `{"reason":"changed plans"}`)
	if rec.Code != http.StatusOK || svc.gotText != "changed plans" {
		t.Fatalf("reason not passed through: %d %q", rec.Code, svc.gotText)
	}
	svc = &fakeRides{err: types.ErrUnauthorized}
	rec, _ = do(t, newRideMux(svc), models.Identity{ID: uuid.New(), Role: types.RoleRider}, http.MethodPost, path, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-party cancel: expected 403, got %d", rec.Code)
	}

	svc = &fakeRides{err: types.ErrNotFoundOrWrongState}
	rec, _ = do(t, newRideMux(svc), rider, http.MethodPost, path, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("terminal cancel: expected 404, got %d", rec.Code)
	}
}

func TestPostMessage(t *testing.T) {
	rider := models.Identity{ID: uuid.New(), Role: types.RoleRider}
	path := "/rides/" + uuid.NewString() + "/messages"

	svc := &fakeRides{}
	rec, out := do(t, newRideMux(svc), rider, http.MethodPost, path, `{"text":"at the gate"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if out["message"].(map[string]any)["text"] != "at the gate" {
		t.Fatalf("unexpected body %v", out)
	}

	rec, _ = do(t, newRideMux(&fakeRides{}), rider, http.MethodPost, path, `{"text":"   "}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank message: expected 422, got %d", rec.Code)
	}
}

func TestActiveAndHistory(t *testing.T) {
	rider := models.Identity{ID: uuid.New(), Role: types.RoleRider}

	rec, _ := do(t, newRideMux(&fakeRides{err: types.ErrNoActiveRide}), rider, http.MethodGet, "/rides/active", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without an active ride, got %d", rec.Code)
	}

	svc := &fakeRides{ride: sampleRide()}
	rec, out := do(t, newRideMux(svc), rider, http.MethodGet, "/rides/history?page=1&page_size=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if meta := out["metadata"].(map[string]any); meta["page_size"] != float64(5) {
		t.Fatalf("unexpected metadata %v", meta)
	}

	rec, _ = do(t, newRideMux(&fakeRides{}), rider, http.MethodGet, "/rides/history?page=one", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("non-numeric page: expected 422, got %d", rec.Code)
	}
}
