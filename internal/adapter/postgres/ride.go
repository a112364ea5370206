package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
)

const rideColumns = `
	id, rider_id, driver_id, status,
	pickup_address, pickup_lat, pickup_lng,
	dest_address, dest_lat, dest_lng,
	vehicle_class, fare, distance_km, duration_min,
	otp, otp_attempts,
	created_at, accepted_at, otp_verified_at, completed_at, cancellation, updated_at,
	messages, rating`

type RideRepo struct {
	conn
	trm     trm.TxManager
	events  *RideEventRepo
	service string
}

func NewRideRepo(db *pgxpool.Pool, tm trm.TxManager, service string) *RideRepo {
	return &RideRepo{
		conn:    conn{db: db},
		trm:     tm,
		events:  NewRideEventRepo(db),
		service: service,
	}
}

func (r *RideRepo) Create(ctx context.Context, ride *models.Ride) (err error) {
	const op = "RideRepo.Create"
	defer r.observe("create", time.Now(), &err)

	if err := ride.Validate(); err != nil {
		return err
	}

	cancellation, messages, rating, err := encodeJSON(ride)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return r.trm.Do(ctx, func(ctx context.Context) error {
		q := `
			INSERT INTO rides (` + rideColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			        $17, $18, $19, $20, $21::jsonb, $22, $23::jsonb, $24::jsonb);`

		if _, err := r.q(ctx).Exec(ctx, q,
			ride.ID, ride.RiderID, ride.DriverID, ride.Status,
			ride.Pickup.Address, ride.Pickup.Latitude, ride.Pickup.Longitude,
			ride.Destination.Address, ride.Destination.Latitude, ride.Destination.Longitude,
			ride.VehicleClass, ride.Fare, ride.DistanceKm, ride.DurationMin,
			ride.OTP, ride.OTPAttempts,
			ride.CreatedAt, ride.AcceptedAt, ride.OTPVerifiedAt, ride.CompletedAt, cancellation, ride.UpdatedAt,
			messages, rating,
		); err != nil {
			switch {
			case postgres.IsUniqueViolation(err):
				return fmt.Errorf("%s: ride %s: %w", op, ride.ID, types.ErrConflict)
			case postgres.IsCheckViolation(err):
				return fmt.Errorf("%s: %w", op, types.ErrInvalidInput)
			}
			return wrap.Error(wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed), fmt.Errorf("%s: insert ride: %w", op, err))
		}

		return r.events.CreateEvent(ctx, models.AuditEntry{
			RideID: ride.ID,
			Event:  types.AuditEventFor(ride.Status),
			To:     ride.Status,
			At:     ride.CreatedAt,
		})
	})
}

func (r *RideRepo) Get(ctx context.Context, id uuid.UUID) (ride *models.Ride, err error) {
	defer r.observe("get", time.Now(), &err)
	return r.get(ctx, id, false)
}

func (r *RideRepo) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Ride, error) {
	q := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}

	ride, err := scanRide(r.q(ctx).QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRideNotFound
		}
		return nil, wrap.Error(ctx, fmt.Errorf("RideRepo.Get: %w", err))
	}
	return ride, nil
}

// ConditionalUpdate locks the row, applies mutate in Go and writes back guarded by
// the expected status. A status change appends to ride_events in the same transaction.
func (r *RideRepo) ConditionalUpdate(ctx context.Context, id uuid.UUID, expected types.RideStatus, mutate func(*models.Ride) error) (updated *models.Ride, err error) {
	const op = "RideRepo.ConditionalUpdate"
	defer r.observe("conditional_update", time.Now(), &err)

	err = r.trm.Do(ctx, func(ctx context.Context) error {
		cur, err := r.get(ctx, id, true)
		if err != nil {
			return err
		}
		if cur.Status != expected {
			return types.ErrConflict
		}

		next := cur.Clone()
		if err := mutate(next); err != nil {
			return err
		}
		next.UpdatedAt = time.Now().UTC()

		if err := models.CheckUpdate(cur, next); err != nil {
			return err
		}

		cancellation, messages, rating, err := encodeJSON(next)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		q := `
			UPDATE rides
			SET status = $3,
			    driver_id = $4,
			    otp_attempts = $5,
			    accepted_at = $6,
			    otp_verified_at = $7,
			    completed_at = $8,
			    cancellation = $9::jsonb,
			    updated_at = $10,
			    messages = $11::jsonb,
			    rating = $12::jsonb
			WHERE id = $1 AND status = $2;`

		tag, err := r.q(ctx).Exec(ctx, q,
			id, expected,
			next.Status, next.DriverID, next.OTPAttempts,
			next.AcceptedAt, next.OTPVerifiedAt, next.CompletedAt, cancellation,
			next.UpdatedAt, messages, rating,
		)
		if err != nil {
			return wrap.Error(wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed), fmt.Errorf("%s: %w", op, err))
		}
		if tag.RowsAffected() != 1 {
			return types.ErrConflict
		}

		if next.Status != cur.Status {
			if err := r.events.CreateEvent(ctx, models.AuditEntry{
				RideID: id,
				Event:  types.AuditEventFor(next.Status),
				From:   cur.Status,
				To:     next.Status,
				At:     next.UpdatedAt,
			}); err != nil {
				return err
			}
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *RideRepo) Query(ctx context.Context, f models.RideFilter) (rides []*models.Ride, meta models.Metadata, err error) {
	const op = "RideRepo.Query"
	defer r.observe("query", time.Now(), &err)

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = models.DefaultPageSize
	}

	q := fmt.Sprintf(`
		SELECT count(*) OVER(), %s
		FROM rides
		WHERE %s = $1 AND ($2::text = '' OR status = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4;`, rideColumns, historyColumn(f.Role))

	rows, err := r.q(ctx).Query(ctx, q, f.PartyID, string(f.Status), f.Limit(), f.Offset())
	if err != nil {
		return nil, models.Metadata{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	total := 0
	rides = make([]*models.Ride, 0, f.PageSize)
	for rows.Next() {
		ride, err := scanRide(rows, &total)
		if err != nil {
			return nil, models.Metadata{}, wrap.Error(ctx, fmt.Errorf("%s: scan: %w", op, err))
		}
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Metadata{}, wrap.Error(ctx, fmt.Errorf("%s: rows: %w", op, err))
	}

	return rides, models.CalculateMetadata(total, f.Page, f.PageSize), nil
}

func (r *RideRepo) FindActive(ctx context.Context, partyID uuid.UUID, role types.UserRole) (ride *models.Ride, err error) {
	defer r.observe("find_active", time.Now(), &err)

	q := fmt.Sprintf(`
		SELECT %s FROM rides
		WHERE %s = $1 AND status IN ('pending', 'accepted', 'ongoing')
		ORDER BY created_at DESC
		LIMIT 1;`, rideColumns, partyColumn(role))

	ride, err = scanRide(r.q(ctx).QueryRow(ctx, q, partyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNoActiveRide
		}
		return nil, wrap.Error(ctx, fmt.Errorf("RideRepo.FindActive: %w", err))
	}
	return ride, nil
}

// RatingStats averages the ratings received by partyID acting in role.
func (r *RideRepo) RatingStats(ctx context.Context, partyID uuid.UUID, role types.UserRole) (avg float64, count int, err error) {
	defer r.observe("rating_stats", time.Now(), &err)

	direction := "user_to_driver"
	if role == types.RoleRider {
		direction = "driver_to_user"
	}

	q := fmt.Sprintf(`
		SELECT COALESCE(AVG((rating->'%[1]s'->>'stars')::int), 0)::float8, COUNT(*)
		FROM rides
		WHERE %[2]s = $1 AND rating->'%[1]s' IS NOT NULL;`, direction, partyColumn(role))

	if err := r.q(ctx).QueryRow(ctx, q, partyID).Scan(&avg, &count); err != nil {
		return 0, 0, wrap.Error(ctx, fmt.Errorf("RideRepo.RatingStats: %w", err))
	}
	return avg, count, nil
}

// Events returns the audit trail of a ride.
func (r *RideRepo) Events(ctx context.Context, rideID uuid.UUID) ([]models.AuditEntry, error) {
	return r.events.List(ctx, rideID)
}

func (r *RideRepo) observe(operation string, start time.Time, err *error) {
	metrics.RecordDatabaseQuery(r.service, operation, *err, time.Since(start))
}

func partyColumn(role types.UserRole) string {
	if role == types.RoleDriver {
		return "driver_id"
	}
	return "rider_id"
}

// historyColumn also matches the driver a cancellation released.
func historyColumn(role types.UserRole) string {
	if role == types.RoleDriver {
		return "COALESCE(driver_id, (cancellation->>'driver_id')::uuid)"
	}
	return "rider_id"
}

func encodeJSON(ride *models.Ride) (cancellation *string, messages, rating string, err error) {
	if ride.Cancellation != nil {
		b, err := json.Marshal(ride.Cancellation)
		if err != nil {
			return nil, "", "", fmt.Errorf("encode cancellation: %w", err)
		}
		s := string(b)
		cancellation = &s
	}

	msgs := ride.Messages
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return nil, "", "", fmt.Errorf("encode messages: %w", err)
	}
	messages = string(b)

	b, err = json.Marshal(ride.Rating)
	if err != nil {
		return nil, "", "", fmt.Errorf("encode rating: %w", err)
	}
	rating = string(b)

	return cancellation, messages, rating, nil
}

// scanRide reads rideColumns, preceded by extra destinations when given.
func scanRide(row pgx.Row, extra ...any) (*models.Ride, error) {
	var (
		ride                            models.Ride
		cancellation, messages, rating []byte
	)

	dest := append(extra,
		&ride.ID, &ride.RiderID, &ride.DriverID, &ride.Status,
		&ride.Pickup.Address, &ride.Pickup.Latitude, &ride.Pickup.Longitude,
		&ride.Destination.Address, &ride.Destination.Latitude, &ride.Destination.Longitude,
		&ride.VehicleClass, &ride.Fare, &ride.DistanceKm, &ride.DurationMin,
		&ride.OTP, &ride.OTPAttempts,
		&ride.CreatedAt, &ride.AcceptedAt, &ride.OTPVerifiedAt, &ride.CompletedAt, &cancellation, &ride.UpdatedAt,
		&messages, &rating,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if len(cancellation) > 0 {
		var cd models.CancellationDetails
		if err := json.Unmarshal(cancellation, &cd); err != nil {
			return nil, fmt.Errorf("decode cancellation: %w", err)
		}
		ride.Cancellation = &cd
	}
	if err := json.Unmarshal(messages, &ride.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	if ride.Messages == nil {
		ride.Messages = []models.ChatMessage{}
	}
	if err := json.Unmarshal(rating, &ride.Rating); err != nil {
		return nil, fmt.Errorf("decode rating: %w", err)
	}

	return &ride, nil
}
