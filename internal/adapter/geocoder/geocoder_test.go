package geocoder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"googlemaps.github.io/maps"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

func TestLocationIQGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/search":
			if r.URL.Query().Get("q") == "nowhere" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			if r.URL.Query().Get("key") != "k" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `[{"lat":"43.2389","lon":"76.8897","display_name":"Abay Ave"}]`)
		case "/v1/reverse":
			fmt.Fprint(w, `{"display_name":"Abay Ave, Almaty"}`)
		}
	}))
	defer srv.Close()

	c := NewLocationIQ("k")
	c.baseURL = srv.URL

	loc, err := c.Geocode(context.Background(), "Abay Ave & Dostyk")
	if err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if math.Abs(loc.Latitude-43.2389) > 1e-9 || math.Abs(loc.Longitude-76.8897) > 1e-9 {
		t.Fatalf("unexpected location %+v", loc)
	}
	if loc.Address != "Abay Ave & Dostyk" {
		t.Fatal("geocode should keep the requested address")
	}

	if _, err := c.Geocode(context.Background(), "nowhere"); !errors.Is(err, types.ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", err)
	}

	addr, err := c.Reverse(context.Background(), 43.2389, 76.8897)
	if err != nil || addr != "Abay Ave, Almaty" {
		t.Fatalf("reverse: %q %v", addr, err)
	}
}

func TestGoogleGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("address") == "nowhere" {
			fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`)
			return
		}
		fmt.Fprint(w, `{"status":"OK","results":[{"formatted_address":"Dostyk Ave 5","geometry":{"location":{"lat":43.2567,"lng":76.9286}}}]}`)
	}))
	defer srv.Close()

	g, err := NewGoogle("k", maps.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	loc, err := g.Geocode(context.Background(), "Dostyk 5")
	if err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if loc.Latitude != 43.2567 || loc.Longitude != 76.9286 {
		t.Fatalf("unexpected location %+v", loc)
	}

	if _, err := g.Geocode(context.Background(), "nowhere"); !errors.Is(err, types.ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", err)
	}
}

func TestDisabled(t *testing.T) {
	if _, err := (Disabled{}).Geocode(context.Background(), "x"); !errors.Is(err, types.ErrGeocoderDisabled) {
		t.Fatalf("expected ErrGeocoderDisabled, got %v", err)
	}
}
