package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// RideStore keeps rides in process memory. Every read returns a copy and every
// conditional update runs the mutation on a copy that replaces the stored ride only
// when the mutation and its checks succeed.
type RideStore struct {
	mu     sync.RWMutex
	rides  map[uuid.UUID]*models.Ride
	events map[uuid.UUID][]models.AuditEntry
}

func NewRideStore() *RideStore {
	return &RideStore{
		rides:  make(map[uuid.UUID]*models.Ride),
		events: make(map[uuid.UUID][]models.AuditEntry),
	}
}

func (s *RideStore) Create(_ context.Context, ride *models.Ride) error {
	if err := ride.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rides[ride.ID]; ok {
		return fmt.Errorf("ride %s already exists", ride.ID)
	}
	s.rides[ride.ID] = ride.Clone()
	s.events[ride.ID] = append(s.events[ride.ID], models.AuditEntry{
		RideID: ride.ID,
		Event:  types.AuditEventFor(ride.Status),
		To:     ride.Status,
		At:     ride.CreatedAt,
	})
	return nil
}

func (s *RideStore) Get(_ context.Context, id uuid.UUID) (*models.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rides[id]
	if !ok {
		return nil, types.ErrRideNotFound
	}
	return r.Clone(), nil
}

func (s *RideStore) ConditionalUpdate(_ context.Context, id uuid.UUID, expected types.RideStatus, mutate func(*models.Ride) error) (*models.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.rides[id]
	if !ok {
		return nil, types.ErrRideNotFound
	}
	if cur.Status != expected {
		return nil, types.ErrConflict
	}

	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()

	if err := models.CheckUpdate(cur, next); err != nil {
		return nil, err
	}

	s.rides[id] = next
	if next.Status != cur.Status {
		s.events[id] = append(s.events[id], models.AuditEntry{
			RideID: id,
			Event:  types.AuditEventFor(next.Status),
			From:   cur.Status,
			To:     next.Status,
			At:     next.UpdatedAt,
		})
	}
	return next.Clone(), nil
}

func (s *RideStore) Query(_ context.Context, f models.RideFilter) ([]*models.Ride, models.Metadata, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = models.DefaultPageSize
	}

	s.mu.RLock()
	matched := make([]*models.Ride, 0)
	for _, r := range s.rides {
		if !belongsTo(r, f.PartyID, f.Role) {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		matched = append(matched, r)
	}
	s.mu.RUnlock()

	sortNewestFirst(matched)

	total := len(matched)
	start := min(f.Offset(), total)
	end := min(start+f.Limit(), total)

	page := make([]*models.Ride, 0, end-start)
	for _, r := range matched[start:end] {
		page = append(page, r.Clone())
	}
	return page, models.CalculateMetadata(total, f.Page, f.PageSize), nil
}

func (s *RideStore) FindActive(_ context.Context, partyID uuid.UUID, role types.UserRole) (*models.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *models.Ride
	for _, r := range s.rides {
		if !r.Status.IsActive() || !belongsTo(r, partyID, role) {
			continue
		}
		if newest == nil || r.CreatedAt.After(newest.CreatedAt) {
			newest = r
		}
	}
	if newest == nil {
		return nil, types.ErrNoActiveRide
	}
	return newest.Clone(), nil
}

// RatingStats averages the ratings received by partyID acting in role.
func (s *RideStore) RatingStats(_ context.Context, partyID uuid.UUID, role types.UserRole) (float64, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum, count int
	for _, r := range s.rides {
		if !belongsTo(r, partyID, role) {
			continue
		}
		if e := r.Rating.Given(role.Counterpart()); e != nil {
			sum += e.Stars
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

// Events returns the audit trail of a ride, oldest first.
func (s *RideStore) Events(_ context.Context, rideID uuid.UUID) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.events[rideID]), nil
}

func belongsTo(r *models.Ride, partyID uuid.UUID, role types.UserRole) bool {
	if role == types.RoleDriver {
		driver, ok := r.AssignedDriver()
		return ok && driver == partyID
	}
	return r.RiderID == partyID
}

func sortNewestFirst(rides []*models.Ride) {
	slices.SortFunc(rides, func(a, b *models.Ride) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
