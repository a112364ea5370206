package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// OfferTracker remembers which drivers were offered which ride.
type OfferTracker struct {
	mu     sync.Mutex
	offers map[uuid.UUID]map[uuid.UUID]struct{}
}

func NewOfferTracker() *OfferTracker {
	return &OfferTracker{offers: make(map[uuid.UUID]map[uuid.UUID]struct{})}
}

func (t *OfferTracker) Record(_ context.Context, rideID uuid.UUID, driverIDs []uuid.UUID) error {
	if len(driverIDs) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.offers[rideID]
	if !ok {
		set = make(map[uuid.UUID]struct{}, len(driverIDs))
		t.offers[rideID] = set
	}
	for _, id := range driverIDs {
		set[id] = struct{}{}
	}
	return nil
}

// Take removes driverID from the ride's offer set and reports whether it was there.
func (t *OfferTracker) Take(_ context.Context, rideID, driverID uuid.UUID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.offers[rideID]
	if !ok {
		return false, nil
	}
	if _, ok := set[driverID]; !ok {
		return false, nil
	}
	delete(set, driverID)
	if len(set) == 0 {
		delete(t.offers, rideID)
	}
	return true, nil
}

// Drain removes and returns every driver offered the ride.
func (t *OfferTracker) Drain(_ context.Context, rideID uuid.UUID) ([]uuid.UUID, error) {
	t.mu.Lock()
	set := t.offers[rideID]
	delete(t.offers, rideID)
	t.mu.Unlock()

	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out, nil
}
