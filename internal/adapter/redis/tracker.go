package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const offerKeyPrefix = "dispatch:ride:%s:offered"

// OfferTracker keeps the set of drivers offered a ride. Sets expire after ttl so
// rides that are never resolved do not leak keys.
type OfferTracker struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewOfferTracker(client *goredis.Client, ttl time.Duration) *OfferTracker {
	return &OfferTracker{client: client, ttl: ttl}
}

func (t *OfferTracker) Record(ctx context.Context, rideID uuid.UUID, driverIDs []uuid.UUID) error {
	if len(driverIDs) == 0 {
		return nil
	}

	members := make([]any, len(driverIDs))
	for i, d := range driverIDs {
		members[i] = d.String()
	}

	key := offerKey(rideID)
	pipe := t.client.Pipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, t.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record offers for %s: %w", rideID, err)
	}
	return nil
}

// Take removes driverID from the offer set; SREM makes the removal single-winner.
func (t *OfferTracker) Take(ctx context.Context, rideID, driverID uuid.UUID) (bool, error) {
	n, err := t.client.SRem(ctx, offerKey(rideID), driverID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("take offer %s/%s: %w", rideID, driverID, err)
	}
	return n == 1, nil
}

// Drain reads and deletes the offer set in one transaction.
func (t *OfferTracker) Drain(ctx context.Context, rideID uuid.UUID) ([]uuid.UUID, error) {
	key := offerKey(rideID)

	var members *goredis.StringSliceCmd
	if _, err := t.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		members = p.SMembers(ctx, key)
		p.Del(ctx, key)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("drain offers for %s: %w", rideID, err)
	}

	out := make([]uuid.UUID, 0, len(members.Val()))
	for _, m := range members.Val() {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func offerKey(rideID uuid.UUID) string {
	return fmt.Sprintf(offerKeyPrefix, rideID.String())
}
