package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
)

type RideEventRepo struct {
	conn
}

func NewRideEventRepo(db *pgxpool.Pool) *RideEventRepo {
	return &RideEventRepo{conn: conn{db: db}}
}

type eventData struct {
	From types.RideStatus `json:"from,omitempty"`
	To   types.RideStatus `json:"to"`
}

// CreateEvent inserts a new ride event into the database.
func (r *RideEventRepo) CreateEvent(ctx context.Context, e models.AuditEntry) error {
	data, err := json.Marshal(eventData{From: e.From, To: e.To})
	if err != nil {
		return fmt.Errorf("encode event data: %w", err)
	}

	q := `INSERT INTO ride_events (ride_id, event_type, event_data, created_at)
		  VALUES ($1, $2, $3::jsonb, $4);`

	if _, err := r.q(ctx).Exec(ctx, q, e.RideID, e.Event.String(), string(data), e.At); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return types.ErrRideNotFound
		}
		return fmt.Errorf("insert ride event: %w", err)
	}
	return nil
}

// List returns the events of a ride, oldest first.
func (r *RideEventRepo) List(ctx context.Context, rideID uuid.UUID) ([]models.AuditEntry, error) {
	q := `SELECT event_type, event_data, created_at FROM ride_events WHERE ride_id = $1 ORDER BY id;`

	rows, err := r.q(ctx).Query(ctx, q, rideID)
	if err != nil {
		return nil, fmt.Errorf("list ride events: %w", err)
	}
	defer rows.Close()

	out := make([]models.AuditEntry, 0)
	for rows.Next() {
		var (
			e    = models.AuditEntry{RideID: rideID}
			raw  []byte
			data eventData
		)
		if err := rows.Scan(&e.Event, &raw, &e.At); err != nil {
			return nil, fmt.Errorf("scan ride event: %w", err)
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode ride event: %w", err)
		}
		e.From, e.To = data.From, data.To
		out = append(out, e)
	}
	return out, rows.Err()
}
