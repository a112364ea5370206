package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

func setupClient(t *testing.T) *goredis.Client {
	t.Helper()

	addr := os.Getenv("DISPATCH_TEST_REDIS")
	if addr == "" {
		t.Skip("DISPATCH_TEST_REDIS not set")
	}

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLocator(t *testing.T) {
	ctx := context.Background()
	client := setupClient(t)

	key := "test:dispatch:drivers:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	l := NewLocator(client, key, 0)
	car, moto := uuid.New(), uuid.New()
	t.Cleanup(func() {
		_ = l.Remove(context.Background(), car)
		_ = l.Remove(context.Background(), moto)
	})

	if err := l.Upsert(ctx, models.DriverPosition{DriverID: car, Location: models.Location{Latitude: 43.2390, Longitude: 76.8898}, VehicleClass: types.ClassCar, Status: types.DriverAvailable}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	_ = l.Upsert(ctx, models.DriverPosition{DriverID: moto, Location: models.Location{Latitude: 43.2391, Longitude: 76.8899}, VehicleClass: types.ClassMoto, Status: types.DriverAvailable})

	got, err := l.FindCandidates(ctx, 43.2389, 76.8897, 4, types.ClassCar)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got[0].DriverID != car || !got[0].Available() {
		t.Fatalf("unexpected candidates %+v", got)
	}

	_ = l.Remove(ctx, car)
	got, _ = l.FindCandidates(ctx, 43.2389, 76.8897, 4, types.ClassCar)
	if len(got) != 0 {
		t.Fatalf("removed driver still found: %+v", got)
	}
}

func TestRedisOfferTracker(t *testing.T) {
	ctx := context.Background()
	client := setupClient(t)

	tr := NewOfferTracker(client, time.Minute)
	ride := uuid.New()
	a, b := uuid.New(), uuid.New()

	if err := tr.Record(ctx, ride, []uuid.UUID{a, b}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if ok, err := tr.Take(ctx, ride, a); err != nil || !ok {
		t.Fatalf("first take: %v %v", ok, err)
	}
	if ok, _ := tr.Take(ctx, ride, a); ok {
		t.Fatal("second take must report absence")
	}

	rest, err := tr.Drain(ctx, ride)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(rest) != 1 || rest[0] != b {
		t.Fatalf("unexpected drain result %v", rest)
	}
}
