package wrap

import (
	"context"
	"errors"
	"testing"
)

var errSentinel = errors.New("ride already changed")

func TestErrorKeepsSentinel(t *testing.T) {
	ctx := WithAction(context.Background(), "accept_ride")
	err := Error(ctx, errSentinel)

	if !errors.Is(err, errSentinel) {
		t.Fatalf("wrapped error must match sentinel")
	}
	if err.Error() != errSentinel.Error() {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestErrorRewrapMergesContext(t *testing.T) {
	inner := Error(WithRideID(context.Background(), "ride-1"), errSentinel)
	outer := Error(WithAction(context.Background(), "accept_ride"), inner)

	lc, ok := ErrorCtx(context.Background(), outer).Value(LogCtxKey).(LogCtx)
	if !ok {
		t.Fatalf("expected log context on error")
	}
	if lc.Action != "accept_ride" || lc.RideID != "ride-1" {
		t.Fatalf("expected merged context, got %+v", lc)
	}
	if !errors.Is(outer, errSentinel) {
		t.Fatalf("rewrapped error must still match sentinel")
	}
}

func TestErrorNil(t *testing.T) {
	if Error(context.Background(), nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-9")
	if got := RequestID(ctx); got != "req-9" {
		t.Fatalf("expected req-9, got %q", got)
	}
	if RequestID(context.Background()) != "" {
		t.Fatalf("expected empty request id")
	}
}
