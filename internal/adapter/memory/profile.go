package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]models.Profile
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[uuid.UUID]models.Profile)}
}

func (s *ProfileStore) Get(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	return copyProfile(p), nil
}

func (s *ProfileStore) Upsert(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[p.ID] = *copyProfile(*p)
	return nil
}

// LockRating only checks that the profile exists; TxManager serializes the refresh.
func (s *ProfileStore) LockRating(_ context.Context, id uuid.UUID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.profiles[id]; !ok {
		return types.ErrUserNotFound
	}
	return nil
}

func (s *ProfileStore) UpdateRating(_ context.Context, id uuid.UUID, agg models.RatingAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return types.ErrUserNotFound
	}
	p.Rating = agg
	s.profiles[id] = p
	return nil
}

func (s *ProfileStore) SetPresence(_ context.Context, id uuid.UUID, status types.DriverStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return types.ErrUserNotFound
	}
	if p.Role != types.RoleDriver {
		return types.ErrNotDriver
	}
	p.Presence = status
	s.profiles[id] = p
	return nil
}

func copyProfile(p models.Profile) *models.Profile {
	if p.Vehicle != nil {
		v := *p.Vehicle
		p.Vehicle = &v
	}
	return &p
}
