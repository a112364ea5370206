package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

type ProfileRepo struct {
	conn
}

func NewProfileRepo(db *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{conn: conn{db: db}}
}

func (r *ProfileRepo) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	const q = `
		SELECT id, role, name, phone, email, rating_avg, rating_count, vehicle, presence
		FROM profiles
		WHERE id = $1;`

	var (
		p       models.Profile
		vehicle []byte
	)
	err := r.q(ctx).QueryRow(ctx, q, id).Scan(
		&p.ID, &p.Role, &p.Name, &p.Phone, &p.Email, &p.Rating.Average, &p.Rating.Count, &vehicle, &p.Presence,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, wrap.Error(ctx, fmt.Errorf("ProfileRepo.Get: %w", err))
	}

	if len(vehicle) > 0 {
		var v models.Vehicle
		if err := json.Unmarshal(vehicle, &v); err != nil {
			return nil, fmt.Errorf("ProfileRepo.Get: decode vehicle: %w", err)
		}
		p.Vehicle = &v
	}
	return &p, nil
}

// Upsert inserts a profile or overwrites its descriptive fields. Rating and presence
// of an existing profile are left alone.
func (r *ProfileRepo) Upsert(ctx context.Context, p *models.Profile) error {
	var vehicle *string
	if p.Vehicle != nil {
		b, err := json.Marshal(p.Vehicle)
		if err != nil {
			return fmt.Errorf("ProfileRepo.Upsert: encode vehicle: %w", err)
		}
		s := string(b)
		vehicle = &s
	}

	presence := p.Presence
	if presence == "" {
		presence = types.DriverOffline
	}

	const q = `
		INSERT INTO profiles (id, role, name, phone, email, vehicle, presence)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    phone = EXCLUDED.phone,
		    email = EXCLUDED.email,
		    vehicle = EXCLUDED.vehicle,
		    updated_at = now();`

	if _, err := r.q(ctx).Exec(ctx, q, p.ID, p.Role, p.Name, p.Phone, p.Email, vehicle, presence); err != nil {
		return wrap.Error(ctx, fmt.Errorf("ProfileRepo.Upsert: %w", err))
	}
	return nil
}

// LockRating locks the profile row until the enclosing transaction ends, so
// concurrent rating refreshes for one party run one after another.
func (r *ProfileRepo) LockRating(ctx context.Context, id uuid.UUID) error {
	const q = `SELECT 1 FROM profiles WHERE id = $1 FOR UPDATE;`

	var one int
	if err := r.q(ctx).QueryRow(ctx, q, id).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.ErrUserNotFound
		}
		return wrap.Error(ctx, fmt.Errorf("ProfileRepo.LockRating: %w", err))
	}
	return nil
}

func (r *ProfileRepo) UpdateRating(ctx context.Context, id uuid.UUID, agg models.RatingAggregate) error {
	const q = `UPDATE profiles SET rating_avg = $2, rating_count = $3, updated_at = now() WHERE id = $1;`

	tag, err := r.q(ctx).Exec(ctx, q, id, agg.Average, agg.Count)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("ProfileRepo.UpdateRating: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}
	return nil
}

func (r *ProfileRepo) SetPresence(ctx context.Context, id uuid.UUID, status types.DriverStatus) error {
	const q = `UPDATE profiles SET presence = $2, updated_at = now() WHERE id = $1 AND role = 'driver';`

	tag, err := r.q(ctx).Exec(ctx, q, id, status)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("ProfileRepo.SetPresence: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotDriver
	}
	return nil
}
