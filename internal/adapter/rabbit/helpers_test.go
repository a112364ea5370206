package rabbit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

func TestRetry(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("expected success after 2 calls, got %v after %d", err, calls)
	}

	calls = 0
	boom := errors.New("down")
	err = retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 3 {
		t.Fatalf("expected last error after 3 calls, got %v after %d", err, calls)
	}
}

func TestRetryStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry(ctx, 5, time.Second, func() error { return errors.New("down") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRoutingKey(t *testing.T) {
	if got := RoutingKey(types.StatusAccepted); got != "ride.status.accepted" {
		t.Fatalf("unexpected key %s", got)
	}
}
