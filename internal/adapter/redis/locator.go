package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

const metaKeyPrefix = "dispatch:driver:meta:"

// Locator indexes driver positions with redis GEO commands and keeps class and
// presence in a hash per driver.
type Locator struct {
	client *goredis.Client
	geoKey string
	limit  int
}

func NewLocator(client *goredis.Client, geoKey string, limit int) *Locator {
	return &Locator{client: client, geoKey: geoKey, limit: limit}
}

func (l *Locator) Upsert(ctx context.Context, p models.DriverPosition) error {
	id := p.DriverID.String()

	pipe := l.client.Pipeline()
	pipe.GeoAdd(ctx, l.geoKey, &goredis.GeoLocation{
		Name:      id,
		Longitude: p.Location.Longitude,
		Latitude:  p.Location.Latitude,
	})
	pipe.HSet(ctx, metaKey(id), map[string]any{
		"class":   string(p.VehicleClass),
		"status":  string(p.Status),
		"address": p.Location.Address,
		"updated": time.Now().UTC().Format(time.RFC3339),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis locator upsert %s: %w", id, err)
	}
	return nil
}

func (l *Locator) Remove(ctx context.Context, driverID uuid.UUID) error {
	id := driverID.String()

	pipe := l.client.Pipeline()
	pipe.ZRem(ctx, l.geoKey, id)
	pipe.Del(ctx, metaKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis locator remove %s: %w", id, err)
	}
	return nil
}

// FindCandidates searches the GEO set nearest first and keeps drivers of class.
func (l *Locator) FindCandidates(ctx context.Context, lat, lng, radiusKm float64, class types.VehicleClass) ([]models.Candidate, error) {
	found, err := l.client.GeoSearchLocation(ctx, l.geoKey, &goredis.GeoSearchLocationQuery{
		GeoSearchQuery: goredis.GeoSearchQuery{
			Longitude:  lng,
			Latitude:   lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis geosearch: %w", err)
	}
	if len(found) == 0 {
		return []models.Candidate{}, nil
	}

	pipe := l.client.Pipeline()
	metas := make([]*goredis.MapStringStringCmd, len(found))
	for i, g := range found {
		metas[i] = pipe.HGetAll(ctx, metaKey(g.Name))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis driver meta: %w", err)
	}

	out := make([]models.Candidate, 0, len(found))
	for i, g := range found {
		id, err := uuid.Parse(g.Name)
		if err != nil {
			continue
		}
		meta := metas[i].Val()
		vc := types.VehicleClass(meta["class"])
		if class != "" && vc != class {
			continue
		}
		out = append(out, models.Candidate{
			DriverID:     id,
			Location:     models.Location{Latitude: g.Latitude, Longitude: g.Longitude, Address: meta["address"]},
			VehicleClass: vc,
			Status:       types.DriverStatus(meta["status"]),
			DistanceKm:   g.Dist,
		})
		if l.limit > 0 && len(out) == l.limit {
			break
		}
	}
	return out, nil
}

func metaKey(id string) string { return metaKeyPrefix + id }
