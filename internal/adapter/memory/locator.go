package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
)

// Locator is an in-process driver index scanned linearly on every search.
type Locator struct {
	mu        sync.RWMutex
	positions map[uuid.UUID]models.DriverPosition
	limit     int
}

// NewLocator returns an index returning at most limit candidates per search; zero means no limit.
func NewLocator(limit int) *Locator {
	return &Locator{
		positions: make(map[uuid.UUID]models.DriverPosition),
		limit:     limit,
	}
}

func (l *Locator) Upsert(_ context.Context, p models.DriverPosition) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.positions[p.DriverID] = p
	return nil
}

func (l *Locator) Remove(_ context.Context, driverID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.positions, driverID)
	return nil
}

// FindCandidates returns drivers of class within radiusKm of the point, nearest first.
func (l *Locator) FindCandidates(_ context.Context, lat, lng, radiusKm float64, class types.VehicleClass) ([]models.Candidate, error) {
	origin := models.Location{Latitude: lat, Longitude: lng}

	l.mu.RLock()
	out := make([]models.Candidate, 0)
	for _, p := range l.positions {
		if class != "" && p.VehicleClass != class {
			continue
		}
		d := ridecalc.Distance(origin, p.Location)
		if d > radiusKm {
			continue
		}
		out = append(out, models.Candidate{
			DriverID:     p.DriverID,
			Location:     p.Location,
			VehicleClass: p.VehicleClass,
			Status:       p.Status,
			DistanceKm:   d,
		})
	}
	l.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Candidate) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		}
		return 0
	})

	if l.limit > 0 && len(out) > l.limit {
		out = out[:l.limit]
	}
	return out, nil
}
